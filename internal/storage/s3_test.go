package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.Equal(t, "narrations/j1/audio_20260314_092653.mp3", BuildKey("j1", "/tmp/worker_x.mp3", at))
	assert.Equal(t, "narrations/j1/audio_20260314_092653.wav", BuildKey("j1", "/tmp/worker_x.wav", at))
	assert.Equal(t, "narrations/j1/audio_20260314_092653.wav", BuildKey("j1", "/tmp/noext", at))
}

func TestPublicURL(t *testing.T) {
	u := &Uploader{bucket: "narrations", region: "us-east-1"}
	assert.Equal(t,
		"https://narrations.s3.us-east-1.amazonaws.com/narrations/j1/audio_x.mp3",
		u.publicURL("narrations/j1/audio_x.mp3"))

	u = &Uploader{bucket: "narrations", region: "us-east-1", endpoint: "http://localhost:9000/", pathStyle: true}
	assert.Equal(t,
		"http://localhost:9000/narrations/narrations/j1/audio_x.mp3",
		u.publicURL("narrations/j1/audio_x.mp3"))
}
