package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type streamInfo struct {
	ID      int
	Volume  int
	AppName string
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

// Ducker lowers the volume of other PulseAudio playback streams while we
// are listening or speaking, and restores them afterwards. Streams whose
// application.name matches selfNames are left alone.
type Ducker struct {
	mu          sync.Mutex
	active      bool
	selfNames   []string
	originalVol map[int]int
	minVolume   int
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > 150 {
		minVolume = 150
	}
	return &Ducker{
		selfNames:   append([]string(nil), selfNames...),
		originalVol: make(map[int]int),
		minVolume:   minVolume,
	}
}

// Duck fades every foreign stream down to current*factor, clamped to the
// configured minimum. A second Duck while already active is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.originalVol = make(map[int]int)

	var targets []fadeTarget
	for _, s := range streams {
		if d.isSelfStream(s) {
			continue
		}
		to := int(math.Round(float64(s.Volume) * factor))
		if to < d.minVolume {
			to = d.minVolume
		}
		d.originalVol[s.ID] = s.Volume
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: to})
	}

	if len(targets) > 0 {
		if err := fadeInputs(ctx, targets, duration); err != nil {
			return err
		}
	}

	d.active = true
	return nil
}

// Unduck fades foreign streams back to the volumes recorded by Duck.
// Streams that appeared after Duck are left as they are.
func (d *Ducker) Unduck(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	var targets []fadeTarget
	for _, s := range streams {
		if d.isSelfStream(s) {
			continue
		}
		orig, ok := d.originalVol[s.ID]
		if !ok {
			continue
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: orig})
	}

	if len(targets) > 0 {
		if err := fadeInputs(ctx, targets, duration); err != nil {
			return err
		}
	}

	d.originalVol = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelfStream(s streamInfo) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func fadeInputs(ctx context.Context, targets []fadeTarget, duration time.Duration) error {
	if duration <= 0 {
		for _, t := range targets {
			if err := setSinkInputVolume(ctx, t.id, t.to); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		return nil
	}

	const minStep = 10 * time.Millisecond

	steps := int(duration / minStep)
	if steps < 1 {
		steps = 1
	}
	stepDur := duration / time.Duration(steps)

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := setSinkInputVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		if i < steps {
			time.Sleep(stepDur)
		}
	}

	return nil
}

func listStreams(ctx context.Context) ([]streamInfo, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	parts := strings.Split(string(out), "Sink Input #")
	if len(parts) <= 1 {
		return nil, nil
	}

	var res []streamInfo
	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := streamInfo{ID: id}
		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if i := strings.Index(line, `"`); i >= 0 {
					rest := line[i+1:]
					if j := strings.Index(rest, `"`); j >= 0 {
						s.AppName = rest[:j]
					}
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res, nil
}

func setSinkInputVolume(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 150 {
		percent = 150
	}
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}
