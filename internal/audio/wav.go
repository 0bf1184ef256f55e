package audio

import (
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV encodes the recording as 16-bit mono PCM.
func (r Recording) WAV() ([]byte, error) {
	var buf seekBuffer

	enc := wav.NewEncoder(&buf, r.SampleRate, 16, 1, 1)

	data := make([]int, len(r.Samples))
	for i, s := range r.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	ib := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: r.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(ib); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	return buf.data, nil
}

// seekBuffer is an in-memory io.WriteSeeker for the wav encoder, which
// seeks back to patch chunk sizes on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative seek position %d", abs)
	}
	b.pos = int(abs)
	return abs, nil
}
