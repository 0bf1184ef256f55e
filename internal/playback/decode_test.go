package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willow/internal/audio"
)

func TestDecodeWAV(t *testing.T) {
	rec := audio.Recording{Samples: make([]float32, 1600), SampleRate: 16000}
	for i := range rec.Samples {
		rec.Samples[i] = 0.5
	}
	data, err := rec.WAV()
	require.NoError(t, err)

	samples, sr, err := Decode(data, "")
	require.NoError(t, err)
	assert.Equal(t, 16000, sr)
	assert.Len(t, samples, 1600)
	assert.InDelta(t, 0.5, samples[0], 0.001)
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, _, err := Decode(nil, "wav")
	assert.Error(t, err)
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, _, err := Decode([]byte("xxxx"), "flac")
	assert.ErrorContains(t, err, "unsupported audio format")
}

func TestSniff(t *testing.T) {
	assert.Equal(t, "wav", sniff([]byte("RIFFxxxx")))
	assert.Equal(t, "ogg", sniff([]byte("OggSxxxx")))
	assert.Equal(t, "mp3", sniff([]byte{0xFF, 0xFB, 0x00, 0x00}))
}

func TestDownmixStereo(t *testing.T) {
	in := []float32{1, 0, 0.5, 0.5, -1, 1}
	out := downmix(in, 2)
	require.Len(t, out, 3)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)
	assert.InDelta(t, 0.0, out[2], 1e-6)
}

func TestResampleHalvesLength(t *testing.T) {
	in := make([]float32, 1000)
	out := resample(in, 32000, 16000)
	assert.Equal(t, 500, len(out))
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	assert.Equal(t, in, resample(in, 16000, 16000))
}

func TestPCMStreamer(t *testing.T) {
	st := &pcmStreamer{samples: []float32{0.25, -0.25}}

	out := make([][2]float64, 4)
	n, ok := st.Stream(out)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0.25, out[0][0])
	assert.Equal(t, 0.25, out[0][1])
	assert.Equal(t, -0.25, out[1][0])

	n, ok = st.Stream(out)
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.NoError(t, st.Err())
}
