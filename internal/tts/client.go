// Package tts streams synthesized speech from the Orpheus engine to local
// WAV artifacts.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// SynthesisError carries a non-success engine response.
type SynthesisError struct {
	Status int
	Body   string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts generation failed with status %d: %s", e.Status, e.Body)
}

type speechRequest struct {
	Input          string  `json:"input"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// Client generates audio through the TTS engine's speech endpoint.
type Client struct {
	serverURL string
	outputDir string
	http      *http.Client
}

func NewClient(serverURL, outputDir string, timeout time.Duration) *Client {
	return &Client{
		serverURL: serverURL,
		outputDir: outputDir,
		http:      &http.Client{Timeout: timeout},
	}
}

// Synthesize requests audio for text with the given voice and streams the
// response to a WAV file under the output directory. The returned path is
// owned by the caller, including its eventual removal.
func (c *Client) Synthesize(ctx context.Context, text, voice, executionID string) (string, error) {
	payload, err := json.Marshal(speechRequest{
		Input:          text,
		Model:          "orpheus",
		Voice:          voice,
		ResponseFormat: "wav",
		Speed:          1.0,
	})
	if err != nil {
		return "", fmt.Errorf("encode speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &SynthesisError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("worker_%s_%s.wav", executionID, time.Now().Format("20060102_150405"))
	path := filepath.Join(c.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("stream audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close audio file: %w", err)
	}
	return path, nil
}
