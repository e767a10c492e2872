package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the narration worker.
type Config struct {
	Env string

	// Remote narration API.
	APIBaseURL string
	APIKey     string

	// TTS engine.
	TTSServerURL string

	// Object storage.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
	S3Endpoint         string
	S3PathStyle        bool

	// Notifier.
	NotifierWebhookURL string

	// Pool behavior.
	MaxWorkers     int
	WorkerTimeout  time.Duration
	PollInterval   time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	ScaleUpAfter   time.Duration

	// Voice selection.
	Voice          string
	UseRandomVoice bool

	// Local artifacts and ops surface.
	OutputDir string
	OpsAddr   string
	PidFile   string
}

// Load reads configuration from environment variables with sane defaults for
// local development.
func Load() Config {
	return Config{
		Env:                getEnv("APP_ENV", "dev"),
		APIBaseURL:         getEnv("API_BASE_URL", "https://api.example.com"),
		APIKey:             getEnv("SERVER_TO_SERVER_API_KEY", ""),
		TTSServerURL:       getEnv("TTS_SERVER_URL", "http://localhost:5005"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3PathStyle:        getEnvBool("S3_PATH_STYLE", false),
		NotifierWebhookURL: getEnv("NOTIFIER_WEBHOOK_URL", ""),
		MaxWorkers:         getEnvInt("MAX_WORKERS", 3),
		WorkerTimeout:      getEnvDuration("WORKER_TIMEOUT", 5*time.Minute),
		PollInterval:       getEnvDuration("POLL_INTERVAL", time.Second),
		BackoffInitial:     getEnvDuration("BACKOFF_INITIAL", 5*time.Second),
		BackoffMax:         getEnvDuration("BACKOFF_MAX", 60*time.Second),
		ScaleUpAfter:       getEnvDuration("SCALE_UP_AFTER", 30*time.Second),
		Voice:              getEnv("VOICE", "tara"),
		UseRandomVoice:     getEnvBool("USE_RANDOM_VOICE", false),
		OutputDir:          getEnv("OUTPUT_DIR", "outputs"),
		OpsAddr:            getEnv("OPS_ADDR", ":9090"),
		PidFile:            getEnv("PIDFILE", ""),
	}
}

// Validate reports every missing required setting at once so a bad .env is
// diagnosed in one pass.
func (c Config) Validate() error {
	var missing []string
	if c.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}
	if c.APIKey == "" {
		missing = append(missing, "SERVER_TO_SERVER_API_KEY")
	}
	if c.AWSAccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.AWSSecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if c.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("30s") and, for compatibility
// with older deployments, bare integers interpreted as seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
