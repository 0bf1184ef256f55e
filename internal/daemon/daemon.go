// Package daemon runs the voice loop: microphone frames become
// recordings, recordings become transcripts, transcripts drive the
// assistant, and replies are spoken back.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"willow/internal/audio"
	"willow/internal/control"
	"willow/internal/ipc"
	"willow/internal/stt"
	"willow/internal/tts"
)

// Assistant produces a reply for one transcript.
type Assistant interface {
	Run(ctx context.Context, transcript string) (string, error)
}

// Speaker plays an encoded audio payload.
type Speaker interface {
	PlayBytes(ctx context.Context, data []byte, format string) error
}

// Cue plays the listening chime.
type Cue interface {
	Listening(ctx context.Context)
}

type Config struct {
	DuckFactor float64       // 0 disables ducking
	DuckFade   time.Duration
}

type Deps struct {
	Segmenter   *audio.Segmenter
	Source      audio.FrameSource
	Transcriber stt.Transcriber
	Assistant   Assistant
	Synthesizer tts.Synthesizer
	Speaker     Speaker
	Cue         Cue
	Notify      func(summary string) // optional desktop notification
	Ducker      *audio.Ducker
	Bridge      *control.Bridge
	Log         *slog.Logger
}

type Daemon struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	mu         sync.Mutex
	quit       context.CancelFunc
	speaking   bool
	overridden bool
}

func New(cfg Config, deps Deps) *Daemon {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.DuckFade <= 0 {
		cfg.DuckFade = 200 * time.Millisecond
	}
	return &Daemon{cfg: cfg, deps: deps, log: log.With("component", "daemon")}
}

// Run blocks until ctx is cancelled or the frame source fails.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.quit = cancel
	d.mu.Unlock()

	recordings := make(chan audio.Recording, 4)
	segErr := make(chan error, 1)
	go func() {
		segErr <- d.deps.Segmenter.Run(ctx, d.deps.Source, recordings)
	}()

	d.log.Info("voice loop running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-segErr:
			return err
		case rec := <-recordings:
			d.handle(ctx, rec)
		}
	}
}

func (d *Daemon) handle(ctx context.Context, rec audio.Recording) {
	d.log.Info("picked up speech", "duration", rec.Duration())

	if d.deps.Cue != nil {
		d.deps.Cue.Listening(ctx)
	}
	if d.deps.Notify != nil {
		d.deps.Notify("Listening...")
	}

	if d.deps.Ducker != nil && d.cfg.DuckFactor > 0 {
		if err := d.deps.Ducker.Duck(ctx, d.cfg.DuckFactor, d.cfg.DuckFade); err != nil {
			d.log.Warn("ducking failed", "err", err)
		}
		defer func() {
			if err := d.deps.Ducker.Unduck(ctx, d.cfg.DuckFade); err != nil {
				d.log.Warn("unducking failed", "err", err)
			}
		}()
	}

	transcript, err := d.deps.Transcriber.Transcribe(ctx, rec)
	if err != nil {
		d.log.Error("transcription failed", "err", err)
		return
	}
	if transcript == "" {
		d.log.Debug("empty transcript, skipping")
		return
	}
	d.log.Info("transcript ready", "text", transcript)

	reply, err := d.deps.Assistant.Run(ctx, transcript)
	if err != nil {
		d.log.Error("assistant failed", "err", err)
		return
	}
	if reply == "" {
		return
	}
	d.log.Info("assistant replied", "text", reply)

	d.speak(ctx, reply)
}

func (d *Daemon) speak(ctx context.Context, text string) {
	data, format, err := d.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		d.log.Error("synthesis failed", "err", err)
		return
	}
	if len(data) == 0 {
		return
	}

	// The microphone stays muted while we speak so the assistant does
	// not trigger on its own voice. A mute command arriving during
	// playback wins over the restore.
	wasMuted := d.deps.Segmenter.Muted()
	d.mu.Lock()
	d.speaking = true
	d.overridden = false
	d.mu.Unlock()
	d.deps.Segmenter.SetMuted(true)
	defer func() {
		d.mu.Lock()
		restore := !d.overridden
		d.speaking = false
		d.mu.Unlock()
		if restore {
			d.deps.Segmenter.SetMuted(wasMuted)
		}
	}()

	if err := d.deps.Speaker.PlayBytes(ctx, data, format); err != nil {
		d.log.Error("playback failed", "err", err)
	}
}

// markOverride records a user mute change arriving mid-playback so the
// post-playback restore leaves it in force.
func (d *Daemon) markOverride() {
	d.mu.Lock()
	if d.speaking {
		d.overridden = true
	}
	d.mu.Unlock()
}

// HandleControl serves one ipc command.
func (d *Daemon) HandleControl(cmd ipc.Command) ipc.Reply {
	switch cmd.Cmd {
	case ipc.CmdMute:
		d.deps.Segmenter.SetMuted(true)
		d.markOverride()
	case ipc.CmdUnmute:
		d.deps.Segmenter.SetMuted(false)
		d.markOverride()
	case ipc.CmdToggle:
		d.deps.Segmenter.ToggleMuted()
		d.markOverride()
	case ipc.CmdTrigger:
		// Ensure the loop is listening and acknowledge audibly.
		d.deps.Segmenter.SetMuted(false)
		d.markOverride()
		if d.deps.Cue != nil {
			d.deps.Cue.Listening(context.Background())
		}
	case ipc.CmdStatus:
		return ipc.Reply{OK: true, Muted: d.deps.Segmenter.Muted()}
	case ipc.CmdQuit:
		d.mu.Lock()
		quit := d.quit
		d.mu.Unlock()
		if quit != nil {
			quit()
		}
	default:
		return ipc.Reply{OK: false, Error: "unknown command: " + cmd.Cmd}
	}

	if d.deps.Bridge != nil {
		d.deps.Bridge.Broadcast()
	}
	return ipc.Reply{OK: true, Muted: d.deps.Segmenter.Muted()}
}
