// Package pool owns the worker concurrency budget: it decides when to
// launch another pipeline execution, tracks every execution in flight, and
// suppresses useless polling while the remote queue is empty.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"narration-worker/internal/config"
	"narration-worker/internal/logger"
	"narration-worker/internal/models"
	"narration-worker/internal/telemetry"
)

const drainPollInterval = 100 * time.Millisecond

// RunFunc executes one pipeline run. setStatus publishes status transitions
// into the pool's worker record for that execution.
type RunFunc func(ctx context.Context, executionID string, setStatus func(string)) models.Outcome

// Pool schedules pipeline executions under an adaptive concurrency budget.
type Pool struct {
	cfg config.Config
	run RunFunc
	log *logger.Logger

	mu      sync.Mutex
	records map[string]*models.WorkerRecord
	backoff *backoffState

	now func() time.Time
}

func New(cfg config.Config, run RunFunc, log *logger.Logger) *Pool {
	return &Pool{
		cfg:     cfg,
		run:     run,
		log:     log,
		records: make(map[string]*models.WorkerRecord),
		backoff: newBackoffState(cfg.BackoffInitial, cfg.BackoffMax),
		now:     time.Now,
	}
}

// Run re-evaluates the launch decision on a fixed interval until ctx is
// canceled. Cancellation stops new launches; executions already in flight
// run to natural completion before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	p.log.WithComponent("pool").
		WithField("max_workers", p.cfg.MaxWorkers).
		Info("worker pool started")

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			p.log.WithComponent("pool").Info("worker pool stopped")
			return ctx.Err()
		case <-ticker.C:
			if id, ok := p.reserve(); ok {
				go p.execute(id)
			}
		}
	}
}

// reserve runs the launch decision and, when it fires, inserts the worker
// record under the same lock so every concurrent decision sees the new
// execution immediately.
func (p *Pool) reserve() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.decideLocked(now) {
		return "", false
	}

	id := uuid.NewString()
	p.records[id] = &models.WorkerRecord{
		ID:        id,
		Status:    models.StatusStarting,
		StartedAt: now,
	}
	telemetry.ActiveWorkersGauge.Set(float64(len(p.records)))
	return id, true
}

// decideLocked is the launch policy. Callers hold p.mu.
//
// During backoff nothing launches until the period elapses; an elapsed
// period resets the state and admits a single probe execution, and only
// when nothing else is running. Outside backoff the pool always keeps one
// execution alive, and scales further (up to the ceiling) only when some
// execution has been processing long enough to signal sustained work.
func (p *Pool) decideLocked(now time.Time) bool {
	if p.backoff.active() {
		if !p.backoff.expired(now) {
			return false
		}
		p.backoff.reset()
		telemetry.BackoffGauge.Set(0)
		return len(p.records) == 0
	}

	active := len(p.records)
	if active == 0 {
		return true
	}
	if active >= p.cfg.MaxWorkers {
		return false
	}
	for _, r := range p.records {
		if r.Status == models.StatusProcessing && now.Sub(r.StartedAt) > p.cfg.ScaleUpAfter {
			return true
		}
	}
	return false
}

// execute runs one pipeline to completion. Executions deliberately get a
// background context: shutdown must not cancel work in flight, and every
// outbound call is already bounded by the collaborator timeouts.
func (p *Pool) execute(id string) {
	outcome := p.run(context.Background(), id, func(status string) {
		p.setStatus(id, status)
	})
	p.finish(id, outcome)
}

func (p *Pool) setStatus(id, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.records[id]; ok {
		r.Status = status
	}
}

// finish removes the worker record and feeds the outcome into the backoff
// state: an empty queue grows the delay, a success clears it.
func (p *Pool) finish(id string, outcome models.Outcome) {
	p.mu.Lock()
	delete(p.records, id)

	switch outcome {
	case models.OutcomeNoWork:
		p.backoff.observeEmpty(p.now())
		telemetry.BackoffGauge.Set(p.backoff.current.Seconds())
		telemetry.NoWorkTotal.Inc()
	case models.OutcomeSuccess:
		p.backoff.reset()
		telemetry.BackoffGauge.Set(0)
		telemetry.NarrationsCompleted.Inc()
	case models.OutcomeHandledError:
		telemetry.NarrationsFailed.Inc()
	case models.OutcomeUnexpectedError:
		telemetry.NarrationsUnexpected.Inc()
	}

	active := len(p.records)
	backoffSeconds := p.backoff.current.Seconds()
	telemetry.ActiveWorkersGauge.Set(float64(active))
	p.mu.Unlock()

	p.log.WithComponent("pool").
		WithField("execution_id", id).
		WithField("outcome", string(outcome)).
		WithField("active", active).
		WithField("backoff_seconds", backoffSeconds).
		Info("execution finished")
}

// drain waits for every tracked execution to return.
func (p *Pool) drain() {
	for {
		p.mu.Lock()
		active := len(p.records)
		p.mu.Unlock()
		if active == 0 {
			return
		}
		p.log.WithComponent("pool").WithField("active", active).
			Info("waiting for executions to finish")
		time.Sleep(drainPollInterval)
	}
}

// Snapshot is the pool state exposed on the ops endpoint.
type Snapshot struct {
	Active         []models.WorkerRecord `json:"active"`
	BackoffSeconds float64               `json:"backoff_seconds"`
}

func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Active:         make([]models.WorkerRecord, 0, len(p.records)),
		BackoffSeconds: p.backoff.current.Seconds(),
	}
	for _, r := range p.records {
		snap.Active = append(snap.Active, *r)
	}
	return snap
}
