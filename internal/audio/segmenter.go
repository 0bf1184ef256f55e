// Package audio captures microphone input and cuts it into discrete
// speech recordings.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

const (
	SampleRate = 16000
	FrameSize  = 320 // 20ms at 16kHz
)

// FrameSource delivers fixed-size mono float32 frames. ReadFrame blocks
// until the buffer is filled.
type FrameSource interface {
	ReadFrame(buf []float32) error
}

// Recording is one finished speech segment.
type Recording struct {
	Samples    []float32
	SampleRate int
}

func (r Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(r.Samples)) / float64(r.SampleRate) * float64(time.Second))
}

type SegmenterConfig struct {
	Threshold      float64       // RMS level that triggers recording
	SilenceTimeout time.Duration // rolling deadline after the last loud frame
	MaxDuration    time.Duration // hard cap on one recording
}

func (c *SegmenterConfig) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.015
	}
	if c.SilenceTimeout <= 0 {
		c.SilenceTimeout = 2 * time.Second
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 30 * time.Second
	}
}

// Segmenter runs an Idle -> Triggered -> Idle state machine over a frame
// stream. A frame above the threshold starts a recording; every further
// loud frame pushes the silence deadline out; when the deadline passes
// the buffered frames are flushed as one Recording.
type Segmenter struct {
	cfg   SegmenterConfig
	muted atomic.Bool
	log   *slog.Logger
}

func NewSegmenter(cfg SegmenterConfig, log *slog.Logger) *Segmenter {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{cfg: cfg, log: log.With("component", "segmenter")}
}

func (s *Segmenter) SetMuted(m bool) { s.muted.Store(m) }
func (s *Segmenter) Muted() bool     { return s.muted.Load() }

// ToggleMuted flips the mute flag and reports the new state.
func (s *Segmenter) ToggleMuted() bool {
	for {
		old := s.muted.Load()
		if s.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Run reads frames from src until ctx is cancelled or src fails, sending
// finished recordings to out. Muting mid-recording discards the partial
// buffer without flushing.
func (s *Segmenter) Run(ctx context.Context, src FrameSource, out chan<- Recording) error {
	frameDur := time.Duration(FrameSize) * time.Second / SampleRate
	silenceFrames := int(s.cfg.SilenceTimeout / frameDur)
	maxFrames := int(s.cfg.MaxDuration / frameDur)

	buf := make([]float32, FrameSize)

	var (
		rec       []float32
		triggered bool
		silent    int
	)

	reset := func() {
		rec = nil
		triggered = false
		silent = 0
	}

	flush := func() error {
		samples := rec
		reset()
		if len(samples) == 0 {
			return nil
		}
		r := Recording{Samples: samples, SampleRate: SampleRate}
		s.log.Debug("recording finished", "duration", r.Duration())
		select {
		case out <- r:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := src.ReadFrame(buf); err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		if s.Muted() {
			if triggered {
				s.log.Debug("muted mid-recording, discarding partial buffer")
				reset()
			}
			continue
		}

		rms := frameRMS(buf)

		if !triggered {
			if rms > s.cfg.Threshold {
				triggered = true
				silent = 0
				rec = append(rec, buf...)
			}
			continue
		}

		rec = append(rec, buf...)

		if rms > s.cfg.Threshold {
			silent = 0
		} else {
			silent++
			if silent >= silenceFrames {
				if err := flush(); err != nil {
					return err
				}
				continue
			}
		}

		if len(rec) >= maxFrames*FrameSize {
			s.log.Debug("recording hit max duration")
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
