package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OllamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)
		assert.Equal(t, "привет", req.Prompt)
		w.Write([]byte(`{"embedding":[3,4]}`))
	}))
	defer srv.Close()

	vec, err := NewOllamaEmbedder(srv.URL, "bge-m3").Embed(context.Background(), "привет")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, vec)
}

func TestOllamaEmbedderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"empty embedding", http.StatusOK, `{"embedding":[]}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaEmbedder(srv.URL, "bge-m3").Embed(context.Background(), "q")
			assert.Error(t, err)
		})
	}
}

func TestTranscriberTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "voice.ogg", hdr.Filename)
		assert.Equal(t, "audio", string(data))
		w.Write([]byte(`{"text":"добрый день"}`))
	}))
	defer srv.Close()

	text, err := NewTranscriber(srv.URL, "whisper-1").Transcribe(context.Background(), "voice.ogg", []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, "добрый день", text)
}

func TestTranscriberRejectsEmptyAudio(t *testing.T) {
	_, err := NewTranscriber("http://unused", "").Transcribe(context.Background(), "a.wav", nil)
	assert.ErrorIs(t, err, ErrNoAudio)
}
