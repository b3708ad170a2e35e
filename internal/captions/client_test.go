package captions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestCaptionSuccess(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody chatCompletionRequest

	srv := captionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("A quiet mountain lake at dawn")))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("test-model"))
	caption, err := client.Caption(context.Background(), []byte("fake-png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "A quiet mountain lake at dawn", caption)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "test-model", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
}

func TestCaptionSendsDataURL(t *testing.T) {
	var raw struct {
		Messages []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"messages"`
	}
	srv := captionServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(completionJSON("ok")))
	})

	client := NewClient("key", WithBaseURL(srv.URL))
	_, err := client.Caption(context.Background(), []byte("abc"), "image/jpeg")
	require.NoError(t, err)

	require.Len(t, raw.Messages, 2)
	parts, ok := raw.Messages[1].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 1)
	part := parts[0].(map[string]any)
	imageURL := part["image_url"].(map[string]any)
	url := imageURL["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), "got %q", url)
}

func TestCaptionHTTPError(t *testing.T) {
	srv := captionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	client := NewClient("key", WithBaseURL(srv.URL))
	_, err := client.Caption(context.Background(), []byte("abc"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 429")
}

func TestCaptionAPIError(t *testing.T) {
	srv := captionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	})

	client := NewClient("key", WithBaseURL(srv.URL))
	_, err := client.Caption(context.Background(), []byte("abc"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model")
}

func TestCaptionEmptyChoices(t *testing.T) {
	srv := captionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	client := NewClient("key", WithBaseURL(srv.URL))
	_, err := client.Caption(context.Background(), []byte("abc"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestCaptionRequiresInput(t *testing.T) {
	client := NewClient("key")
	_, err := client.Caption(context.Background(), nil, "image/png")
	assert.Error(t, err)

	client = NewClient("")
	_, err = client.Caption(context.Background(), []byte("abc"), "image/png")
	assert.Error(t, err)
}

func TestCleanCaption(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Sunset over the pier"`, "Sunset over the pier"},
		{"Caption: Sunset over the pier", "Sunset over the pier"},
		{"Here's a caption: Family picnic", "Family picnic"},
		{"  plain text  ", "plain text"},
		{`"Caption: Nested"`, "Nested"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanCaption(tt.in), "input %q", tt.in)
	}
}
