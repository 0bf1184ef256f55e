package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"willow/internal/audio"
)

// WhisperOptions configures the local whisper.cpp backend.
type WhisperOptions struct {
	Language      string // "auto" when empty
	Threads       int    // <=0 uses NumCPU
	InitialPrompt string
	TranslateToEn bool
}

// Whisper transcribes recordings with a local whisper.cpp model. It is
// the offline alternative to the hosted backend.
type Whisper struct {
	model whisper.Model
	opts  WhisperOptions
}

func NewWhisper(modelPath string, opts WhisperOptions) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Whisper{model: m, opts: opts}, nil
}

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

func (w *Whisper) Transcribe(ctx context.Context, rec audio.Recording) (string, error) {
	if w.model == nil {
		return "", errors.New("nil model")
	}
	if len(rec.Samples) == 0 {
		return "", errors.New("no audio samples provided")
	}
	if rec.SampleRate != audio.SampleRate {
		return "", fmt.Errorf("whisper expects %d Hz audio, got %d", audio.SampleRate, rec.SampleRate)
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}

	lang := w.opts.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(w.opts.TranslateToEn)

	threads := w.opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if w.opts.InitialPrompt != "" {
		wctx.SetInitialPrompt(w.opts.InitialPrompt)
	}

	if err := wctx.Process(rec.Samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(s.Text))
	}

	return strings.Join(parts, " "), nil
}
