package moodle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
)

func TestClient_FetchPayload(t *testing.T) {
	payload := testPayload(testElement("https://moodle.example.org/file1.pdf"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	fetched, err := client.FetchPayload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0", fetched["applicationprofile"])
}

func TestClient_FetchPayload_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.FetchPayload(context.Background())
	require.Error(t, err)

	var derr *domerrors.DownloadError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusServiceUnavailable, derr.StatusCode)
}

func TestClient_FetchPayload_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.FetchPayload(context.Background())
	assert.Error(t, err)
}
