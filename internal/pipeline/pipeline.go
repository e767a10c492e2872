// Package pipeline drives one narration job end to end: fetch, synthesize,
// transcode, upload, report, notify, and clean up local artifacts on every
// exit path.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"narration-worker/internal/logger"
	"narration-worker/internal/models"
	"narration-worker/internal/notify"
	"narration-worker/internal/queue"
	"narration-worker/internal/telemetry"
	"narration-worker/internal/tts"
	"narration-worker/internal/voice"
)

// QueueClient hands out pending jobs and records completions.
type QueueClient interface {
	FetchJob(ctx context.Context) (models.Job, error)
	ReportCompletion(ctx context.Context, jobID, audioURL string, durationSeconds int) error
}

// Synthesizer turns text into a local WAV artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, executionID string) (string, error)
}

// Transcoder converts artifacts and measures durations.
type Transcoder interface {
	Duration(path string) float64
	Transcode(ctx context.Context, wavPath string) (string, error)
	CompressedDuration(ctx context.Context, mp3Path string) float64
}

// Uploader stores an artifact and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, jobID, contentType string) (string, error)
}

// Notifier delivers a best-effort summary; it returns any transient files it
// created so the pipeline can remove them.
type Notifier interface {
	Notify(ctx context.Context, s notify.Summary) []string
}

// Pipeline executes single jobs. It is safe for concurrent use; each Run
// owns its job and artifacts exclusively.
type Pipeline struct {
	queue      QueueClient
	tts        Synthesizer
	transcoder Transcoder
	uploader   Uploader
	notifier   Notifier
	voiceOpts  voice.Options
	log        *logger.Logger
}

func New(q QueueClient, s Synthesizer, t Transcoder, u Uploader, n Notifier, voiceOpts voice.Options, log *logger.Logger) *Pipeline {
	return &Pipeline{
		queue:      q,
		tts:        s,
		transcoder: t,
		uploader:   u,
		notifier:   n,
		voiceOpts:  voiceOpts,
		log:        log,
	}
}

// Run drives one execution to a terminal outcome. setStatus publishes
// status transitions to the pool's worker record. Local artifacts are
// removed no matter where the run exits; a panicking collaborator is
// contained and mapped to an unexpected-error outcome.
func (p *Pipeline) Run(ctx context.Context, executionID string, setStatus func(string)) (outcome models.Outcome) {
	log := p.log.WithExecution(executionID)
	artifacts := &artifactSet{log: p.log}
	defer artifacts.RemoveAll()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("pipeline panicked")
			setStatus(models.StatusError)
			outcome = models.OutcomeUnexpectedError
		}
	}()

	job, err := p.queue.FetchJob(ctx)
	if errors.Is(err, queue.ErrNoWork) {
		setStatus(models.StatusNoWork)
		log.Debug("queue empty")
		return models.OutcomeNoWork
	}
	if err != nil {
		return p.fail(log, setStatus, "fetch narration", err)
	}
	log = log.WithField("job_id", job.ID)
	setStatus(models.StatusProcessing)

	text := job.NarrationText()
	if text == "" {
		return p.fail(log, setStatus, "assemble text", errEmptyText)
	}

	voiceID := voice.Select(p.voiceOpts, job.Gender)
	log.WithField("voice", voiceID).Info("synthesizing narration")

	synthStart := time.Now()
	wavPath, err := p.tts.Synthesize(ctx, text, voiceID, executionID)
	if err != nil {
		return p.fail(log, setStatus, "synthesize", err)
	}
	artifacts.Add(wavPath)
	generationSeconds := time.Since(synthStart).Seconds()
	telemetry.SynthesisSeconds.Observe(generationSeconds)

	uploadPath, contentType := wavPath, "audio/wav"
	mp3Path, err := p.transcoder.Transcode(ctx, wavPath)
	if err != nil {
		// Degraded mode: ship the raw WAV rather than abandoning the job.
		log.WithError(err).Warn("transcode failed, uploading untranscoded audio")
	} else {
		artifacts.Add(mp3Path)
		uploadPath, contentType = mp3Path, "audio/mpeg"
	}

	var audioSeconds float64
	if uploadPath == wavPath {
		audioSeconds = p.transcoder.Duration(wavPath)
	} else {
		audioSeconds = p.transcoder.CompressedDuration(ctx, uploadPath)
		if audioSeconds == 0 {
			audioSeconds = p.transcoder.Duration(wavPath)
		}
	}

	audioURL, err := p.uploader.Upload(ctx, uploadPath, job.ID, contentType)
	if err != nil {
		// Storage client errors are well-formed failures, not surprises.
		log.WithError(err).Error("upload failed")
		setStatus(models.StatusFailed)
		return models.OutcomeHandledError
	}

	err = p.queue.ReportCompletion(ctx, job.ID, audioURL, int(audioSeconds))
	if errors.Is(err, queue.ErrJobGone) {
		log.Warn("narration no longer exists, abandoning")
		setStatus(models.StatusFailed)
		return models.OutcomeHandledError
	}
	if err != nil {
		return p.fail(log, setStatus, "report completion", err)
	}

	transient := p.notifier.Notify(ctx, notify.Summary{
		JobID:             job.ID,
		AudioURL:          audioURL,
		AudioSeconds:      audioSeconds,
		GenerationSeconds: generationSeconds,
		Voice:             voiceID,
		Transcript:        text,
	})
	artifacts.Add(transient...)

	log.WithField("audio_url", audioURL).Info("narration completed")
	setStatus(models.StatusCompleted)
	return models.OutcomeSuccess
}

var errEmptyText = errors.New("no text content available for narration")

// fail logs the step failure and maps the error onto the outcome taxonomy:
// modeled collaborator responses are handled errors, anything else is
// unexpected.
func (p *Pipeline) fail(log *logrus.Entry, setStatus func(string), step string, err error) models.Outcome {
	log.WithError(err).WithField("step", step).Error("narration step failed")
	if isHandled(err) {
		setStatus(models.StatusFailed)
		return models.OutcomeHandledError
	}
	setStatus(models.StatusError)
	return models.OutcomeUnexpectedError
}

func isHandled(err error) bool {
	var apiErr *queue.APIError
	var synthErr *tts.SynthesisError
	switch {
	case errors.As(err, &apiErr),
		errors.As(err, &synthErr),
		errors.Is(err, queue.ErrJobGone),
		errors.Is(err, errEmptyText):
		return true
	default:
		return false
	}
}

// artifactSet tracks local files owned by one execution. RemoveAll never
// fails the caller; a file already gone is a no-op.
type artifactSet struct {
	paths []string
	log   *logger.Logger
}

func (a *artifactSet) Add(paths ...string) {
	for _, p := range paths {
		if p != "" {
			a.paths = append(a.paths, p)
		}
	}
}

func (a *artifactSet) RemoveAll() {
	for _, p := range a.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			a.log.WithComponent("pipeline").WithError(err).
				WithField("path", p).Warn("failed to remove local artifact")
		}
	}
	a.paths = nil
}
