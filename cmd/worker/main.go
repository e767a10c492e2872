package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"narration-worker/internal/api"
	"narration-worker/internal/audio"
	"narration-worker/internal/config"
	"narration-worker/internal/logger"
	"narration-worker/internal/notify"
	"narration-worker/internal/pipeline"
	"narration-worker/internal/pool"
	"narration-worker/internal/queue"
	"narration-worker/internal/storage"
	"narration-worker/internal/tts"
	"narration-worker/internal/voice"
)

func main() {
	_ = godotenv.Load() // loads .env when present

	log := logger.New()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("configuration invalid, check your .env file")
		os.Exit(1)
	}

	if cfg.PidFile != "" {
		if err := writePidFile(cfg.PidFile); err != nil {
			log.WithError(err).Error("failed to write pidfile")
			os.Exit(1)
		}
		defer os.Remove(cfg.PidFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Info("shutdown signal received, draining workers")
		cancel()
	}()

	uploader, err := storage.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize storage client")
		os.Exit(1)
	}

	pipe := pipeline.New(
		queue.NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.WorkerTimeout),
		tts.NewClient(cfg.TTSServerURL, cfg.OutputDir, cfg.WorkerTimeout),
		audio.NewTranscoder(log),
		uploader,
		notify.NewWebhook(cfg.NotifierWebhookURL, cfg.WorkerTimeout, log),
		voice.Options{Default: cfg.Voice, UseRandom: cfg.UseRandomVoice},
		log,
	)

	p := pool.New(cfg, pipe.Run, log)

	ops := api.New(p)
	go func() {
		if err := http.ListenAndServe(cfg.OpsAddr, ops.Router()); err != nil {
			log.WithError(err).Warn("ops server stopped")
		}
	}()

	log.WithFields(map[string]interface{}{
		"max_workers": cfg.MaxWorkers,
		"api_url":     cfg.APIBaseURL,
		"tts_url":     cfg.TTSServerURL,
		"s3_bucket":   cfg.S3Bucket,
		"aws_region":  cfg.AWSRegion,
	}).Info("starting narration worker")

	if err := p.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("worker pool stopped")
		os.Exit(1)
	}
}

// writePidFile refuses to start over a live process and replaces a stale
// pidfile left by a crash.
func writePidFile(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(string(trimNewline(data))); err == nil && pidAlive(pid) {
			return fmt.Errorf("already running with pid %d", pid)
		}
		_ = os.Remove(path)
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}

func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
