package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	var gotFiles []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/upload", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(32<<20))
		for _, fh := range r.MultipartForm.File["file"] {
			gotFiles = append(gotFiles, fh.Filename)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"id":        "uuid/report.pdf",
			"url":       "https://signed.example/get",
			"size":      3,
			"expiresAt": time.Now().Add(24 * time.Hour),
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	reply, err := c.Upload(context.Background(), []Part{
		{Name: "report.pdf", Data: []byte("abc")},
		{Name: "notes.txt", Data: []byte("xyz")},
	})
	require.NoError(t, err)
	assert.Equal(t, "uuid/report.pdf", reply.ID)
	assert.Equal(t, []string{"report.pdf", "notes.txt"}, gotFiles)
}

func TestUpload_NoParts(t *testing.T) {
	c := New("http://localhost:0")
	_, err := c.Upload(context.Background(), nil)
	require.ErrorIs(t, err, common.ErrorNoFile)
}

func TestDownload_MultiSegmentID(t *testing.T) {
	var gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"url":     "https://signed.example/get",
			"size":    10,
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	reply, err := c.Download(context.Background(), "uuid/my file.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/get", reply.URL)
	assert.Equal(t, "/download/uuid/my file.txt", gotPath)
}

func TestDownload_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "not found"})
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.Download(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestPresign(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/user/files/presign", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"id":      "rec-1",
			"url":     "https://signed.example/put",
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	reply, err := c.Presign(context.Background(), "jwt-token", "big.iso", "application/octet-stream", 123)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", reply.ID)
	assert.Equal(t, "https://signed.example/put", reply.URL)
	assert.Equal(t, "Bearer jwt-token", gotAuth)
	assert.Equal(t, "big.iso", gotBody["name"])
	assert.Equal(t, float64(123), gotBody["size"])
}

func TestPresign_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "not authenticated"})
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.Presign(context.Background(), "bad", "a.txt", "", 1)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer ts.Close()

	c := New(ts.URL)
	require.NoError(t, c.Delete(context.Background(), "uuid/report.pdf"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/uuid/report.pdf", gotPath)
}
