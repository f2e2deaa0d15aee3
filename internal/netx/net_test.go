package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadToPresignedURL_OK(t *testing.T) {
	var gotBody []byte
	var gotMethod, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := UploadToPresignedURL(context.Background(), srv.Client(), srv.URL, "image/jpeg", []byte("photo-bytes"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "image/jpeg", gotContentType)
	assert.Equal(t, []byte("photo-bytes"), gotBody)
}

func TestUploadToPresignedURL_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	err := UploadToPresignedURL(context.Background(), srv.Client(), srv.URL, "", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUploadToPresignedURL_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := UploadToPresignedURL(ctx, srv.Client(), srv.URL, "", []byte("x"))
	require.Error(t, err)
}
