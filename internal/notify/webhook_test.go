package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"narration-worker/internal/logger"
)

func TestNotifyPostsJSON(t *testing.T) {
	var got Summary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 2*time.Second, logger.New())
	transient := w.Notify(context.Background(), Summary{
		JobID:        "j1",
		AudioURL:     "https://cdn/a.mp3",
		AudioSeconds: 12.5,
	})
	assert.Empty(t, transient)
	assert.Equal(t, "j1", got.JobID)
	assert.Equal(t, 12.5, got.AudioSeconds)
}

func TestNotifyAttachesTranscript(t *testing.T) {
	var contentType, payload string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		payload = r.FormValue("payload_json")
		file, _, err := r.FormFile("transcript")
		require.NoError(t, err)
		file.Close()
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 2*time.Second, logger.New())
	w.tmpDir = t.TempDir()
	transient := w.Notify(context.Background(), Summary{
		JobID:      "j1",
		Transcript: "hello narration",
	})

	require.Len(t, transient, 1)
	assert.True(t, strings.HasPrefix(transient[0], w.tmpDir))
	assert.True(t, strings.Contains(contentType, "multipart/form-data"))
	assert.Contains(t, payload, `"job_id":"j1"`)
}

func TestNotifyFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 2*time.Second, logger.New())
	assert.NotPanics(t, func() {
		w.Notify(context.Background(), Summary{JobID: "j1"})
	})
}

func TestNotifyNoURLConfigured(t *testing.T) {
	w := NewWebhook("", 2*time.Second, logger.New())
	assert.Nil(t, w.Notify(context.Background(), Summary{JobID: "j1"}))
}
