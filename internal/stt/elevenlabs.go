package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"willow/internal/audio"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	DefaultSTTModel   = "scribe_v2"
)

// ElevenLabs transcribes recordings through the speech-to-text endpoint.
type ElevenLabs struct {
	apiKey  string
	modelID string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

type ElevenLabsOption func(*ElevenLabs)

func WithSTTModel(modelID string) ElevenLabsOption {
	return func(e *ElevenLabs) { e.modelID = modelID }
}

func WithSTTBaseURL(url string) ElevenLabsOption {
	return func(e *ElevenLabs) { e.baseURL = strings.TrimSuffix(url, "/") }
}

func WithSTTHTTPClient(c *http.Client) ElevenLabsOption {
	return func(e *ElevenLabs) { e.client = c }
}

func NewElevenLabs(apiKey string, log *slog.Logger, opts ...ElevenLabsOption) (*ElevenLabs, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	e := &ElevenLabs{
		apiKey:  apiKey,
		modelID: DefaultSTTModel,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log.With("component", "stt.elevenlabs"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *ElevenLabs) Transcribe(ctx context.Context, rec audio.Recording) (string, error) {
	wavData, err := rec.WAV()
	if err != nil {
		return "", fmt.Errorf("encode recording: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.WriteField("model_id", e.modelID); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	url := e.baseURL + "/speech-to-text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech-to-text request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError(resp)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	e.log.Debug("transcribed recording",
		"duration", rec.Duration(),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
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
