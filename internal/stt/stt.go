// Package stt turns finished recordings into text.
package stt

import (
	"context"

	"willow/internal/audio"
)

// Transcriber converts one recording into a transcript. An empty
// transcript with a nil error means nothing intelligible was heard.
type Transcriber interface {
	Transcribe(ctx context.Context, rec audio.Recording) (string, error)
}
