package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"willow/internal/audio"
	"willow/internal/browser"
	"willow/internal/control"
	"willow/internal/daemon"
	"willow/internal/ipc"
	"willow/internal/llm"
	"willow/internal/notify"
	"willow/internal/orchestrator"
	"willow/internal/playback"
	"willow/internal/proxy"
	"willow/internal/stt"
	"willow/internal/tool"
	"willow/internal/tts"
)

const systemPrompt = "You are a general browser control assistant. You can interact with tools for YouTube, Google Maps, and general websites & search. After executing tools, respond with a single brief sentence (max 16 words) summarizing the result. Be concise and friendly."

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socketPath := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	wsAddr := cli.String("ws", "", "Websocket control listen address (empty disables)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address (empty disables)")
	model := cli.StringP("model", "m", llm.DefaultModel, "Chat model")
	sttBackend := cli.String("stt", "elevenlabs", "STT backend: elevenlabs or whisper")
	whisperModel := cli.String("whisper-model", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	voiceID := cli.String("voice", tts.DefaultVoiceID, "TTS voice id")
	chimePath := cli.String("chime", "", "Listening chime audio file")
	threshold := cli.Float64("threshold", 0.015, "Speech trigger RMS threshold")
	duckFactor := cli.Float64("duck", 0.3, "Volume factor for other streams while active (0 disables)")
	chromePath := cli.String("chrome", "", "Chrome/Chromium binary path")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}
	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	if elevenKey == "" {
		log.Error("ELEVENLABS_API_KEY not set")
		os.Exit(1)
	}

	var clientOpts []option.RequestOption
	clientOpts = append(clientOpts, option.WithAPIKey(openaiKey))
	if *proxyAddr != "" {
		httpClient, err := proxy.NewSocksClient(*proxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	api := openai.NewClient(clientOpts...)

	session := browser.NewSession(browser.Config{ChromePath: *chromePath})
	defer session.Close()

	registry := tool.NewRegistry()
	browser.NewTools(session, log.Default()).Register(registry)
	log.Debug("Registered browser tools", "count", len(registry.Catalog()))

	orch := orchestrator.New(llm.New(api, *model, log.Default()), registry, orchestrator.Config{
		SystemPrompt: systemPrompt,
	}, log.Default())

	if err := audio.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer audio.Terminate()

	mic, err := audio.OpenMic()
	if err != nil {
		log.Error("Failed to open microphone", "err", err)
		os.Exit(1)
	}
	defer mic.Close()
	log.Debug("Opened microphone")

	var transcriber stt.Transcriber
	switch *sttBackend {
	case "whisper":
		w, err := stt.NewWhisper(*whisperModel, stt.WhisperOptions{})
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			os.Exit(1)
		}
		defer w.Close()
		transcriber = w
	case "elevenlabs":
		transcriber, err = stt.NewElevenLabs(elevenKey, log.Default())
		if err != nil {
			log.Error("Failed to init stt", "err", err)
			os.Exit(1)
		}
	default:
		log.Error("Unknown stt backend", "backend", *sttBackend)
		os.Exit(1)
	}

	synth, err := tts.NewElevenLabs(elevenKey, log.Default(), tts.WithVoice(*voiceID))
	if err != nil {
		log.Error("Failed to init tts", "err", err)
		os.Exit(1)
	}

	player := playback.NewPlayer()
	seg := audio.NewSegmenter(audio.SegmenterConfig{Threshold: *threshold}, log.Default())

	var ducker *audio.Ducker
	if *duckFactor > 0 {
		ducker = audio.NewDucker([]string{"willow"}, 10)
	}

	var bridge *control.Bridge
	if *wsAddr != "" {
		bridge = control.NewBridge(seg, log.Default())
		defer bridge.Close()

		mux := http.NewServeMux()
		mux.Handle("/ws", bridge)
		go func() {
			log.Info("Control bridge listening", "addr", *wsAddr)
			if err := http.ListenAndServe(*wsAddr, mux); err != nil {
				log.Error("Control bridge failed", "err", err)
			}
		}()
	}

	d := daemon.New(daemon.Config{
		DuckFactor: *duckFactor,
		DuckFade:   200 * time.Millisecond,
	}, daemon.Deps{
		Segmenter:   seg,
		Source:      mic,
		Transcriber: transcriber,
		Assistant:   orch,
		Synthesizer: synth,
		Speaker:     player,
		Cue:         notify.NewCue(player, *chimePath, log.Default()),
		Notify:      notify.Desktop,
		Ducker:      ducker,
		Bridge:      bridge,
		Log:         log.Default(),
	})

	ctlSrv, err := ipc.Serve(*socketPath, d.HandleControl, log.Default())
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer ctlSrv.Close()

	log.Info("Boot up - successful")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Voice loop stopped", "err", err)
		os.Exit(1)
	}

	log.Info("Shutting down")
}
