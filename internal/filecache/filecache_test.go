package filecache

import (
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/logger"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := New(5*time.Second, 1<<16, logger.NewWithWriter("error", os.Stderr), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func fileServer(t *testing.T, filename string, content []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		_, _ = w.Write(content)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_DownloadsAndHashes(t *testing.T) {
	content := []byte("lecture slides content")
	server := fileServer(t, "slides.pdf", content)
	cache := newTestCache(t)

	info, err := cache.Fetch(context.Background(), server.URL+"/file")
	require.NoError(t, err)

	sum := md5.Sum(content) //nolint:gosec
	assert.Equal(t, hex.EncodeToString(sum[:]), info.HashMD5)
	assert.Equal(t, "slides.pdf", info.Filename())

	saved, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	assert.Equal(t, content, saved)
}

func TestFetch_DownloadsOncePerURL(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Disposition", `attachment; filename="a.pdf"`)
		_, _ = w.Write([]byte("content"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	url := server.URL + "/file"

	first, err := cache.Fetch(context.Background(), url)
	require.NoError(t, err)
	second, err := cache.Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, 1, requests, "same URL must be downloaded at most once per run")
	assert.Equal(t, first, second)
}

func TestFetch_FilenameSpacesReplaced(t *testing.T) {
	server := fileServer(t, "my lecture notes.pdf", []byte("x"))
	cache := newTestCache(t)

	info, err := cache.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "my_lecture_notes.pdf", info.Filename())
}

func TestFetch_UTF8Filename(t *testing.T) {
	// UTF-8 bytes on the wire; the parsed filename must come back intact
	server := fileServer(t, "Übungsblatt.pdf", []byte("x"))
	cache := newTestCache(t)

	info, err := cache.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Übungsblatt.pdf", info.Filename())
}

func TestFetch_MissingFilenameIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content without disposition"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	_, err := cache.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var derr *domerrors.DownloadError
	assert.ErrorAs(t, err, &derr)
}

func TestFetch_HTTPErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	cache := newTestCache(t)
	_, err := cache.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var derr *domerrors.DownloadError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusNotFound, derr.StatusCode)
}

func TestProvide_HashesLocalFile(t *testing.T) {
	content := []byte("provided local file")
	path := filepath.Join(t.TempDir(), "local.pdf")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cache := newTestCache(t)
	url := "https://moodle.example.org/provided"
	require.NoError(t, cache.Provide(url, path))

	info, ok := cache.Get(url)
	require.True(t, ok)
	sum := md5.Sum(content) //nolint:gosec
	assert.Equal(t, hex.EncodeToString(sum[:]), info.HashMD5)
	assert.Equal(t, path, info.Path)

	// provided URLs are never downloaded
	fetched, err := cache.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, info, fetched)
}

func TestClose_RemovesDirectory(t *testing.T) {
	server := fileServer(t, "a.pdf", []byte("x"))
	cache, err := New(5*time.Second, 1<<16, logger.NewWithWriter("error", os.Stderr), nil)
	require.NoError(t, err)

	info, err := cache.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.FileExists(t, info.Path)

	require.NoError(t, cache.Close())
	assert.NoFileExists(t, info.Path)
}

func TestFilenameFromHeader(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
		wantErr     bool
	}{
		{"plain", `attachment; filename="report.pdf"`, "report.pdf", false},
		{"spaces", `attachment; filename="a b c.pdf"`, "a_b_c.pdf", false},
		{"latin1 bytes", "attachment; filename=\"\xdcbung.pdf\"", "Übung.pdf", false},
		{"no filename", "attachment", "", true},
		{"empty header", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filenameFromHeader(tt.disposition)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
