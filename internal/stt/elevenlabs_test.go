package stt

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willow/internal/audio"
)

func testRecording() audio.Recording {
	return audio.Recording{
		Samples:    make([]float32, audio.SampleRate/10),
		SampleRate: audio.SampleRate,
	}
}

func TestElevenLabsTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech-to-text", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v2", r.FormValue("model_id"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "audio.wav", hdr.Filename)

		head := make([]byte, 4)
		_, err = f.Read(head)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(head, []byte("RIFF")))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  open youtube  "}`))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("test-key", nil, WithSTTBaseURL(srv.URL))
	require.NoError(t, err)

	text, err := e.Transcribe(context.Background(), testRecording())
	require.NoError(t, err)
	assert.Equal(t, "open youtube", text)
}

func TestElevenLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": {"message": "invalid api key"}}`))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("bad-key", nil, WithSTTBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = e.Transcribe(context.Background(), testRecording())
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 401")
	assert.ErrorContains(t, err, "invalid api key")
}

func TestElevenLabsRequiresAPIKey(t *testing.T) {
	_, err := NewElevenLabs("", nil)
	assert.Error(t, err)
}

func TestElevenLabsModelOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))
		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("k", nil, WithSTTBaseURL(srv.URL), WithSTTModel("scribe_v1"))
	require.NoError(t, err)

	text, err := e.Transcribe(context.Background(), testRecording())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
