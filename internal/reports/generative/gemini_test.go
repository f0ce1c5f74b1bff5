package generative

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medflow/report-explainer/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		size string
		want string
	}{
		{"512x512", "1:1"},
		{"1024x1024", "1:1"},
		{"1792x1024", "16:9"},
		{"1024x768", "4:3"},
		{"1024x1792", "9:16"},
		{"768x1024", "3:4"},
		{"", "1:1"},
		{"large", "1:1"},
		{"0x100", "1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			assert.Equal(t, tt.want, aspectRatio(tt.size))
		})
	}
}

func TestDataURI(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,aGk=", dataURI("image/jpeg", []byte("hi")))
	assert.Equal(t, "data:image/png;base64,aGk=", dataURI("", []byte("hi")))
}

func TestGeminiClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Mild "},{"text":"disc bulge."}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(context.Background(), &config.GeminiConfig{
		APIKey:    "gk-test",
		BaseURL:   srv.URL,
		TextModel: "gemini-2.0-flash",
	})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "system", "user", 100)
	require.NoError(t, err)
	assert.Equal(t, "Mild disc bulge.", text)
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(context.Background(), &config.GeminiConfig{
		APIKey:    "gk-test",
		BaseURL:   srv.URL,
		TextModel: "gemini-2.0-flash",
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "user", 100)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
