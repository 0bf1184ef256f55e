package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willow/internal/audio"
	"willow/internal/ipc"
)

// blockingSource plays scripted frames, then blocks until released.
type blockingSource struct {
	frames  [][]float32
	n       int
	release chan struct{}
}

func (s *blockingSource) ReadFrame(buf []float32) error {
	if s.n < len(s.frames) {
		copy(buf, s.frames[s.n])
		s.n++
		return nil
	}
	<-s.release
	return errors.New("source closed")
}

func speechFrames() [][]float32 {
	loud := make([]float32, audio.FrameSize)
	for i := range loud {
		loud[i] = 0.5
	}
	frames := [][]float32{loud}
	for i := 0; i < 10; i++ {
		frames = append(frames, make([]float32, audio.FrameSize))
	}
	return frames
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, audio.Recording) (string, error) {
	return f.text, f.err
}

type fakeAssistant struct {
	got   atomic.Value
	reply string
}

func (f *fakeAssistant) Run(_ context.Context, transcript string) (string, error) {
	f.got.Store(transcript)
	return f.reply, nil
}

type fakeSynth struct {
	data []byte
}

func (f *fakeSynth) Synthesize(context.Context, string) ([]byte, string, error) {
	return f.data, "mp3", nil
}

type fakeSpeaker struct {
	played     chan []byte
	mutedWhile *audio.Segmenter
	sawMuted   atomic.Bool
	during     func() // runs mid-playback
}

func (f *fakeSpeaker) PlayBytes(_ context.Context, data []byte, _ string) error {
	if f.mutedWhile != nil {
		f.sawMuted.Store(f.mutedWhile.Muted())
	}
	if f.during != nil {
		f.during()
	}
	f.played <- data
	return nil
}

func newTestDaemon(tr *fakeTranscriber, as *fakeAssistant, sp *fakeSpeaker) (*Daemon, *blockingSource, *audio.Segmenter) {
	seg := audio.NewSegmenter(audio.SegmenterConfig{SilenceTimeout: 100 * time.Millisecond}, nil)
	src := &blockingSource{frames: speechFrames(), release: make(chan struct{})}
	d := New(Config{}, Deps{
		Segmenter:   seg,
		Source:      src,
		Transcriber: tr,
		Assistant:   as,
		Synthesizer: &fakeSynth{data: []byte("speech")},
		Speaker:     sp,
	})
	return d, src, seg
}

func TestVoiceLoopEndToEnd(t *testing.T) {
	tr := &fakeTranscriber{text: "open youtube"}
	as := &fakeAssistant{reply: "opening youtube"}
	sp := &fakeSpeaker{played: make(chan []byte, 1)}

	d, src, seg := newTestDaemon(tr, as, sp)
	sp.mutedWhile = seg

	var notified atomic.Value
	d.deps.Notify = func(summary string) { notified.Store(summary) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case data := <-sp.played:
		assert.Equal(t, []byte("speech"), data)
	case <-time.After(5 * time.Second):
		t.Fatal("reply was never played")
	}

	assert.Equal(t, "open youtube", as.got.Load())
	assert.Equal(t, "Listening...", notified.Load())
	assert.True(t, sp.sawMuted.Load(), "mic must be muted while speaking")
	assert.False(t, seg.Muted(), "mute must be restored after playback")

	cancel()
	close(src.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestMuteDuringPlaybackStays(t *testing.T) {
	tr := &fakeTranscriber{text: "open youtube"}
	as := &fakeAssistant{reply: "opening youtube"}
	sp := &fakeSpeaker{played: make(chan []byte, 1)}

	d, src, seg := newTestDaemon(tr, as, sp)
	sp.during = func() { d.HandleControl(ipc.Command{Cmd: ipc.CmdMute}) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-sp.played:
	case <-time.After(5 * time.Second):
		t.Fatal("reply was never played")
	}

	// Wait for the post-playback restore to run, then check it did not
	// undo the user's mute.
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return !d.speaking
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, seg.Muted(), "mute issued during playback must stay in force")

	cancel()
	close(src.release)
	<-done
}

func TestEmptyTranscriptSkipsAssistant(t *testing.T) {
	tr := &fakeTranscriber{text: ""}
	as := &fakeAssistant{reply: "should not run"}
	sp := &fakeSpeaker{played: make(chan []byte, 1)}

	d, src, _ := newTestDaemon(tr, as, sp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-sp.played:
		t.Fatal("nothing should have been played")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Nil(t, as.got.Load())

	cancel()
	close(src.release)
	<-done
}

func TestHandleControl(t *testing.T) {
	d, _, seg := newTestDaemon(&fakeTranscriber{}, &fakeAssistant{}, &fakeSpeaker{played: make(chan []byte, 1)})

	reply := d.HandleControl(ipc.Command{Cmd: ipc.CmdMute})
	assert.True(t, reply.OK)
	assert.True(t, reply.Muted)
	assert.True(t, seg.Muted())

	reply = d.HandleControl(ipc.Command{Cmd: ipc.CmdToggle})
	assert.True(t, reply.OK)
	assert.False(t, reply.Muted)

	reply = d.HandleControl(ipc.Command{Cmd: ipc.CmdStatus})
	assert.True(t, reply.OK)
	assert.False(t, reply.Muted)

	reply = d.HandleControl(ipc.Command{Cmd: "bogus"})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "unknown command")
}

func TestQuitStopsRun(t *testing.T) {
	d, src, _ := newTestDaemon(&fakeTranscriber{}, &fakeAssistant{}, &fakeSpeaker{played: make(chan []byte, 1)})
	defer close(src.release)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	// Run installs its cancel func asynchronously, so keep asking.
	require.Eventually(t, func() bool {
		reply := d.HandleControl(ipc.Command{Cmd: ipc.CmdQuit})
		assert.True(t, reply.OK)
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}
