// Package notify plays short audible cues.
package notify

import (
	"context"
	"log/slog"
	"math"

	"willow/internal/playback"
)

// Cue plays the listening chime. When no chime file is configured, or it
// cannot be decoded, a short generated tone is used instead.
type Cue struct {
	player *playback.Player
	path   string
	log    *slog.Logger
}

func NewCue(player *playback.Player, path string, log *slog.Logger) *Cue {
	if log == nil {
		log = slog.Default()
	}
	return &Cue{player: player, path: path, log: log.With("component", "notify")}
}

// Listening signals that the assistant heard the user and is working.
func (c *Cue) Listening(ctx context.Context) {
	if c.path != "" {
		err := c.player.PlayFile(ctx, c.path)
		if err == nil {
			return
		}
		c.log.Warn("chime playback failed, falling back to tone", "path", c.path, "err", err)
	}
	if err := c.player.Play(ctx, tone(880, 120), 44100); err != nil {
		c.log.Warn("cue tone playback failed", "err", err)
	}
}

// tone generates a sine burst with a short fade on both ends.
func tone(freqHz float64, ms int) []float32 {
	const rate = 44100
	n := rate * ms / 1000
	fade := n / 10
	out := make([]float32, n)
	for i := range out {
		v := 0.3 * math.Sin(2*math.Pi*freqHz*float64(i)/rate)
		if i < fade {
			v *= float64(i) / float64(fade)
		}
		if n-i < fade {
			v *= float64(n-i) / float64(fade)
		}
		out[i] = float32(v)
	}
	return out
}
