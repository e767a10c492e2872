// Package notify delivers best-effort completion summaries to an external
// webhook. Delivery problems are logged and swallowed; they never affect a
// job's outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"narration-worker/internal/logger"
)

// Summary describes one finished narration for the notification channel.
type Summary struct {
	JobID             string  `json:"job_id"`
	AudioURL          string  `json:"audio_url"`
	AudioSeconds      float64 `json:"audio_seconds"`
	GenerationSeconds float64 `json:"generation_seconds"`
	Voice             string  `json:"voice"`
	Transcript        string  `json:"-"`
}

// Webhook posts summaries to a single configured endpoint.
type Webhook struct {
	url    string
	tmpDir string
	http   *http.Client
	log    *logger.Logger
}

func NewWebhook(url string, timeout time.Duration, log *logger.Logger) *Webhook {
	return &Webhook{
		url:    url,
		tmpDir: os.TempDir(),
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Notify sends the summary. When the narration transcript is present it is
// written to a transient file and attached; the returned paths are the
// transient files created, which the caller removes during cleanup.
func (w *Webhook) Notify(ctx context.Context, s Summary) []string {
	if w.url == "" {
		return nil
	}
	log := w.log.WithComponent("notify").WithField("job_id", s.JobID)

	var transient []string
	var req *http.Request
	var err error
	if s.Transcript != "" {
		var attachment string
		attachment, req, err = w.buildMultipart(ctx, s)
		if attachment != "" {
			transient = append(transient, attachment)
		}
	} else {
		req, err = w.buildJSON(ctx, s)
	}
	if err != nil {
		log.WithError(err).Warn("failed to build notification")
		return transient
	}

	resp, err := w.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("notification delivery failed")
		return transient
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		log.WithField("status", resp.StatusCode).Warn("notifier rejected summary")
	}
	return transient
}

func (w *Webhook) buildJSON(ctx context.Context, s Summary) (*http.Request, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// buildMultipart writes the transcript to a transient file and builds a
// multipart request with the summary JSON and the attachment. The transient
// path is returned even on error so the caller can always clean it up.
func (w *Webhook) buildMultipart(ctx context.Context, s Summary) (string, *http.Request, error) {
	attachment := filepath.Join(w.tmpDir, fmt.Sprintf("narration_%s_transcript.txt", s.JobID))
	if err := os.WriteFile(attachment, []byte(s.Transcript), 0o644); err != nil {
		return "", nil, fmt.Errorf("write transcript attachment: %w", err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	payload, err := json.Marshal(s)
	if err != nil {
		return attachment, nil, err
	}
	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return attachment, nil, err
	}

	part, err := mw.CreateFormFile("transcript", filepath.Base(attachment))
	if err != nil {
		return attachment, nil, err
	}
	f, err := os.Open(attachment)
	if err != nil {
		return attachment, nil, err
	}
	_, copyErr := io.Copy(part, f)
	f.Close()
	if copyErr != nil {
		return attachment, nil, copyErr
	}
	if err := mw.Close(); err != nil {
		return attachment, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, body)
	if err != nil {
		return attachment, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return attachment, req, nil
}
