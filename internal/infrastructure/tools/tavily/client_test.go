package tavily

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

func TestSearch(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, `{"query":"go","results":[{"title":"Go","url":"https://go.dev","content":"The Go language","score":0.9}]}`)
	}))
	defer srv.Close()

	cfg := DefaultConfig("tvly-key")
	cfg.BaseURL = srv.URL
	out, err := New(cfg).Search(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, "golang", got.Query)
	assert.Equal(t, "advanced", got.SearchDepth)
	assert.Equal(t, 5, got.MaxResults)

	var results []Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "https://go.dev", results[0].URL)
	assert.Contains(t, out, "\n  ")
}

func TestSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":{"error":"Unauthorized: missing or invalid API key."}}`)
	}))
	defer srv.Close()

	cfg := DefaultConfig("bad")
	cfg.BaseURL = srv.URL
	_, err := New(cfg).Search(context.Background(), "golang")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid API key")

	_, err = New(DefaultConfig("")).Search(context.Background(), "golang")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = New(cfg).Search(context.Background(), "  ")
	assert.Error(t, err)
}
