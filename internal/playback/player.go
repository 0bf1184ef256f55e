package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

const outRate = beep.SampleRate(44100)

// Player serializes playback on the default output device. The speaker
// is initialized once at a fixed rate and inputs are resampled to it.
type Player struct {
	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
}

func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) init() error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(outRate, outRate.N(time.Second/10))
	})
	return p.initErr
}

// Play blocks until the samples have been played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if err := p.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if sampleRate != int(outRate) {
		samples = resample(samples, sampleRate, int(outRate))
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(&pcmStreamer{samples: samples}, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// PlayBytes decodes an encoded payload and plays it.
func (p *Player) PlayBytes(ctx context.Context, data []byte, format string) error {
	samples, sr, err := Decode(data, format)
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}
	return p.Play(ctx, samples, sr)
}

// PlayFile decodes an audio file and plays it.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	samples, sr, err := DecodeFile(path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return p.Play(ctx, samples, sr)
}

// pcmStreamer feeds mono PCM to both output channels.
type pcmStreamer struct {
	samples []float32
	pos     int
}

func (s *pcmStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for i := range out {
		if s.pos >= len(s.samples) {
			break
		}
		v := float64(s.samples[s.pos])
		out[i][0] = v
		out[i][1] = v
		s.pos++
		n++
	}
	return n, true
}

func (s *pcmStreamer) Err() error { return nil }
