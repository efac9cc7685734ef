package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		Owner:   "acme",
		Repo:    "catalog",
		Token:   "gh-token",
		BaseURL: server.URL,
	})
}

// ============================================
// GetFile Tests
// ============================================

func TestClient_GetFile(t *testing.T) {
	var gotRequest *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRequest = r.Clone(context.Background())
		// GitHub wraps base64 content at 60 columns.
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"products": []}`))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":      encoded[:10] + "\n" + encoded[10:],
			"encoding":     "base64",
			"sha":          "rev-1",
			"html_url":     "https://example.com/blob/data.json",
			"download_url": "https://example.com/raw/data.json",
		})
	})

	file, err := client.GetFile(context.Background(), "data.json")

	require.NoError(t, err)
	assert.Equal(t, `{"products": []}`, string(file.Content))
	assert.Equal(t, "rev-1", file.SHA)
	assert.Equal(t, "https://example.com/raw/data.json", file.DownloadURL)

	require.NotNil(t, gotRequest)
	assert.Equal(t, http.MethodGet, gotRequest.Method)
	assert.Equal(t, "/repos/acme/catalog/contents/data.json", gotRequest.URL.Path)
	assert.Equal(t, "main", gotRequest.URL.Query().Get("ref"))
	assert.Equal(t, "token gh-token", gotRequest.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github.v3+json", gotRequest.Header.Get("Accept"))
}

func TestClient_GetFile_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetFile(context.Background(), "data.json")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_GetFile_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "API rate limit exceeded"})
	})

	_, err := client.GetFile(context.Background(), "data.json")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.Status)
	assert.Contains(t, upstream.Message, "rate limit")
}

// ============================================
// PutFile Tests
// ============================================

func TestClient_PutFile_Create(t *testing.T) {
	var gotBody putRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":  map[string]string{"sha": "commit-1", "html_url": "https://example.com/commit/1"},
			"content": map[string]string{"sha": "content-1", "download_url": "https://example.com/raw/data.json"},
		})
	})

	result, err := client.PutFile(context.Background(), "data.json", []byte(`{"products": []}`), "Update products data", "")

	require.NoError(t, err)
	assert.Equal(t, "commit-1", result.CommitSHA)
	assert.Equal(t, "content-1", result.ContentSHA)
	assert.Equal(t, "https://example.com/raw/data.json", result.DownloadURL)

	// Creating a new file must not send a revision marker.
	assert.Empty(t, gotBody.SHA)
	assert.Equal(t, "main", gotBody.Branch)
	assert.Equal(t, "Update products data", gotBody.Message)

	decoded, err := base64.StdEncoding.DecodeString(gotBody.Content)
	require.NoError(t, err)
	assert.Equal(t, `{"products": []}`, string(decoded))
}

func TestClient_PutFile_UpdateSendsSHA(t *testing.T) {
	var gotBody putRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":  map[string]string{"sha": "commit-2"},
			"content": map[string]string{"sha": "content-2"},
		})
	})

	_, err := client.PutFile(context.Background(), "data.json", []byte("{}"), "msg", "rev-1")

	require.NoError(t, err)
	assert.Equal(t, "rev-1", gotBody.SHA)
}

func TestClient_PutFile_Conflict(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"409 conflict", http.StatusConflict},
		{"422 stale sha", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "data.json does not match"})
			})

			_, err := client.PutFile(context.Background(), "data.json", []byte("{}"), "msg", "stale")

			require.ErrorIs(t, err, ErrConflict)
			assert.Contains(t, err.Error(), "does not match")
		})
	}
}

func TestClient_PutFile_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.PutFile(context.Background(), "data.json", []byte("{}"), "msg", "")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
}
