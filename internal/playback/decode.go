// Package playback decodes synthesized speech and plays it on the
// default output device.
package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// Decode converts an audio payload into mono float32 PCM at its native
// sample rate. format is "wav", "mp3" or "ogg"; when empty the payload
// is sniffed by magic bytes.
func Decode(data []byte, format string) ([]float32, int, error) {
	if len(data) == 0 {
		return nil, 0, errors.New("empty audio payload")
	}

	if format == "" {
		format = sniff(data)
	}

	r := bytes.NewReader(data)
	switch format {
	case "wav":
		return decodeWAV(r)
	case "mp3":
		return decodeMP3(r)
	case "ogg", "oga":
		if s, sr, err := decodeOggVorbis(bytes.NewReader(data)); err == nil {
			return s, sr, nil
		}
		s, sr, err := decodeOggOpus(bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("decode ogg as vorbis or opus: %w", err)
		}
		return s, sr, nil
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", format)
	}
}

// DecodeFile decodes an audio file, choosing the format by extension.
func DecodeFile(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Decode(data, ext)
}

func sniff(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch string(data[:4]) {
	case "RIFF":
		return "wav"
	case "OggS":
		return "ogg"
	default:
		return "mp3"
	}
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, 0, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intToFloat32(pb.Data, bd)

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return downmix(x, ch), sr, nil
}

func decodeMP3(r io.Reader) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, 0, err
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, 0, err
	}

	// The decoder always emits interleaved stereo.
	x := downmix(int16ToFloat32(ints), 2)

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	return x, sr, nil
}

func decodeOggVorbis(r io.Reader) ([]float32, int, error) {
	pcm, info, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if info == nil || info.Channels <= 0 || info.SampleRate <= 0 {
		return nil, 0, errors.New("invalid ogg/vorbis stream")
	}
	return downmix(pcm, info.Channels), info.SampleRate, nil
}

func decodeOggOpus(rs io.ReadSeeker) ([]float32, int, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// Opus always decodes at 48k.
	var pcm []float32
	buf := make([]int16, 48_000*ch/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16ToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	if len(pcm) == 0 {
		return nil, 0, errors.New("empty opus stream")
	}
	return downmix(pcm, ch), 48000, nil
}

func intToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		f := float64(v) * scale
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		out[i] = float32(f)
	}
	return out
}

func int16ToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample converts mono PCM between sample rates with linear
// interpolation.
func resample(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}
