package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Init must be called once before opening a microphone.
func Init() error {
	return portaudio.Initialize()
}

func Terminate() {
	portaudio.Terminate()
}

// Mic is a FrameSource over the default capture device.
type Mic struct {
	stream *portaudio.Stream
	buf    []float32
}

func OpenMic() (*Mic, error) {
	m := &Mic{buf: make([]float32, FrameSize)}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(m.buf), m.buf)
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start capture stream: %w", err)
	}

	m.stream = stream
	return m, nil
}

func (m *Mic) ReadFrame(buf []float32) error {
	if len(buf) != len(m.buf) {
		return fmt.Errorf("frame buffer must be %d samples, got %d", len(m.buf), len(buf))
	}
	if err := m.stream.Read(); err != nil {
		return fmt.Errorf("read capture stream: %w", err)
	}
	copy(buf, m.buf)
	return nil
}

func (m *Mic) Close() error {
	if m.stream == nil {
		return nil
	}
	m.stream.Stop()
	err := m.stream.Close()
	m.stream = nil
	return err
}
