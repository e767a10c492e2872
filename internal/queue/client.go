// Package queue talks to the remote narration API: it hands out pending
// jobs and records completions.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"narration-worker/internal/models"
)

// ErrNoWork means the queue has no narration pending.
var ErrNoWork = errors.New("no narration available for audio generation")

// ErrJobGone means the job disappeared between fetch and report.
var ErrJobGone = errors.New("narration no longer exists")

// APIError carries a non-success response for diagnostics.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Body)
}

// Client is the narration API client. All calls share one configured
// timeout.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchJob asks for the next pending narration. A 404 means the queue is
// empty and maps to ErrNoWork.
func (c *Client) FetchJob(ctx context.Context) (models.Job, error) {
	var job models.Job

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/twin/narrations/audio/", nil)
	if err != nil {
		return job, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return job, fmt.Errorf("fetch narration: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return job, ErrNoWork
	case resp.StatusCode != http.StatusOK:
		return job, &APIError{Op: "fetch narration", Status: resp.StatusCode, Body: readBody(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return job, fmt.Errorf("decode narration: %w", err)
	}
	if job.ID == "" {
		return job, &APIError{Op: "fetch narration", Status: resp.StatusCode, Body: "response missing narration id"}
	}
	return job, nil
}

type completionRequest struct {
	AudioFileURL  string `json:"audio_file_url"`
	AudioDuration int    `json:"audio_duration"`
}

// ReportCompletion posts the uploaded audio URL and truncated duration back
// to the origin. A 404 maps to ErrJobGone.
func (c *Client) ReportCompletion(ctx context.Context, jobID, audioURL string, durationSeconds int) error {
	payload, err := json.Marshal(completionRequest{
		AudioFileURL:  audioURL,
		AudioDuration: durationSeconds,
	})
	if err != nil {
		return fmt.Errorf("encode completion: %w", err)
	}

	url := fmt.Sprintf("%s/twin/narrations/%s/audio/", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("report completion: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrJobGone
	case resp.StatusCode != http.StatusOK:
		return &APIError{Op: "report completion", Status: resp.StatusCode, Body: readBody(resp.Body)}
	}
	return nil
}

func readBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return fmt.Sprintf("<unreadable body: %v>", err)
	}
	return string(body)
}
