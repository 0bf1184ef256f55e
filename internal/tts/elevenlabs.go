// Package tts turns reply text into audio.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	DefaultVoiceID      = "JBFqnCBsd6RMkjVDRZzb"
	DefaultTTSModel     = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
)

// Synthesizer converts text into an encoded audio payload. The returned
// format is a container name understood by the playback decoder.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (data []byte, format string, err error)
}

// ElevenLabs synthesizes speech through the text-to-speech endpoint.
type ElevenLabs struct {
	apiKey       string
	voiceID      string
	modelID      string
	outputFormat string
	baseURL      string
	client       *http.Client
	log          *slog.Logger
}

type Option func(*ElevenLabs)

func WithVoice(voiceID string) Option {
	return func(e *ElevenLabs) { e.voiceID = voiceID }
}

func WithModel(modelID string) Option {
	return func(e *ElevenLabs) { e.modelID = modelID }
}

func WithOutputFormat(format string) Option {
	return func(e *ElevenLabs) { e.outputFormat = format }
}

func WithBaseURL(url string) Option {
	return func(e *ElevenLabs) { e.baseURL = strings.TrimSuffix(url, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *ElevenLabs) { e.client = c }
}

func NewElevenLabs(apiKey string, log *slog.Logger, opts ...Option) (*ElevenLabs, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	e := &ElevenLabs{
		apiKey:       apiKey,
		voiceID:      DefaultVoiceID,
		modelID:      DefaultTTSModel,
		outputFormat: DefaultOutputFormat,
		baseURL:      elevenLabsBaseURL,
		client:       &http.Client{Timeout: 60 * time.Second},
		log:          log.With("component", "tts.elevenlabs"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", nil
	}

	payload := map[string]any{
		"text":     text,
		"model_id": e.modelID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.baseURL, e.voiceID, e.outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("text-to-speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", parseAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	e.log.Debug("synthesized speech",
		"chars", len(text),
		"bytes", len(data),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return data, formatContainer(e.outputFormat), nil
}

// formatContainer maps an output format id like "mp3_44100_128" to the
// container name the decoder expects.
func formatContainer(outputFormat string) string {
	if i := strings.IndexByte(outputFormat, '_'); i > 0 {
		return outputFormat[:i]
	}
	return outputFormat
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
	}

	return fmt.Errorf("elevenlabs api status %d: %s", resp.StatusCode, message)
}
