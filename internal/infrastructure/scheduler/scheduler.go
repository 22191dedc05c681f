package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus is the outcome of the last run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a named task run every Interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobState is a snapshot of a registered job
type JobState struct {
	Name        string
	Status      JobStatus
	Runs        int
	Failures    int
	LastRunID   uuid.UUID
	LastError   string
	LastStarted *time.Time
	LastEnded   *time.Time
}

// Config holds scheduler configuration
type Config struct {
	// JobTimeout bounds a single run; zero means no timeout
	JobTimeout time.Duration
	// RunOnStart runs every job once as soon as the scheduler starts
	RunOnStart bool
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout: time.Minute,
		RunOnStart: true,
	}
}

type entry struct {
	job   Job
	mu    sync.Mutex
	state JobState
}

// Scheduler runs periodic maintenance jobs, one goroutine per job.
// A job never overlaps with itself; failures are logged and retried on the next tick.
type Scheduler struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*entry
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler
func New(config Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config: config,
		logger: logger,
		jobs:   make(map[string]*entry),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = &entry{job: job, state: JobState{Name: job.Name, Status: JobStatusPending}}
	return nil
}

// Start launches every registered job. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop cancels all jobs and waits for running ones to return or for ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger runs a job immediately in the calling goroutine
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, e)
}

// States returns a snapshot of every job, ordered by name
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]JobState, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.state)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		_ = s.execute(ctx, e)
	}
	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, e)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.New()
	started := time.Now().UTC()
	e.state.Status = JobStatusRunning
	e.state.LastRunID = runID
	e.state.LastStarted = &started

	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.job.Name, r)
		}
		ended := time.Now().UTC()
		e.state.Runs++
		e.state.LastEnded = &ended
		if err != nil {
			e.state.Status = JobStatusFailed
			e.state.Failures++
			e.state.LastError = err.Error()
			s.logger.Error("Scheduled job failed",
				zap.String("job", e.job.Name),
				zap.String("run_id", runID.String()),
				zap.Duration("elapsed", ended.Sub(started)),
				zap.Error(err),
			)
			return
		}
		e.state.Status = JobStatusSuccess
		e.state.LastError = ""
		s.logger.Debug("Scheduled job completed",
			zap.String("job", e.job.Name),
			zap.String("run_id", runID.String()),
			zap.Duration("elapsed", ended.Sub(started)),
		)
	}()

	return e.job.Run(ctx)
}
