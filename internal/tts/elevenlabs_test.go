package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/"+DefaultVoiceID, r.URL.Path)
		assert.Equal(t, DefaultOutputFormat, r.URL.Query().Get("output_format"))
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello there", payload["text"])
		assert.Equal(t, DefaultTTSModel, payload["model_id"])

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("test-key", nil, WithBaseURL(srv.URL))
	require.NoError(t, err)

	data, format, err := e.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)
	assert.Equal(t, "mp3", format)
}

func TestElevenLabsSynthesizeEmptyText(t *testing.T) {
	e, err := NewElevenLabs("k", nil)
	require.NoError(t, err)

	data, format, err := e.Synthesize(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Empty(t, format)
}

func TestElevenLabsSynthesizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("k", nil, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, _, err = e.Synthesize(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 429")
	assert.ErrorContains(t, err, "rate limited")
}

func TestFormatContainer(t *testing.T) {
	assert.Equal(t, "mp3", formatContainer("mp3_44100_128"))
	assert.Equal(t, "ogg", formatContainer("ogg_44100"))
	assert.Equal(t, "wav", formatContainer("wav"))
}

func TestVoiceOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/custom-voice", r.URL.Path)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("k", nil, WithBaseURL(srv.URL), WithVoice("custom-voice"))
	require.NoError(t, err)

	_, _, err = e.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
}
