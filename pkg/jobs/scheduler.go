// Package jobs runs periodic maintenance on cron schedules: purging expired
// revocations, sampling the database pool and evicting idle rate limiter
// buckets.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/carebase/pkg/observability"
)

// DefaultJobTimeout bounds a single run
const DefaultJobTimeout = time.Minute

// Job is one scheduled task
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// RunRecorder counts job runs
type RunRecorder interface {
	RecordJobRun(job string, err error)
}

// Scheduler runs jobs on their cron schedules. Overlapping runs of the same
// job are skipped.
type Scheduler struct {
	cron     *cron.Cron
	logger   *observability.Logger
	recorder RunRecorder
	timeout  time.Duration
	jobs     map[string]cron.EntryID
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRecorder reports every run to r
func WithRecorder(r RunRecorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithTimeout bounds each run
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler creates a stopped scheduler
func NewScheduler(logger *observability.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	s := &Scheduler{
		logger:  logger,
		timeout: DefaultJobTimeout,
		jobs:    make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	return s
}

// Add schedules job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already scheduled", job.Name)
	}

	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	s.jobs[job.Name] = id
	return nil
}

// Len returns the number of scheduled jobs
func (s *Scheduler) Len() int {
	return len(s.jobs)
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.jobs)).Info("Job scheduler started")
}

// Stop prevents new runs and waits for running jobs or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(job Job) {
	logger := s.logger.WithField("job", job.Name)
	defer observability.RecoverPanicWithCallback(logger, "job "+job.Name, func(recovered interface{}) {
		s.record(job.Name, observability.MustRecover(recovered))
	})

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	s.record(job.Name, err)

	if err != nil {
		logger.WithError(err).Error("Job failed")
		return
	}
	logger.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Job completed")
}

func (s *Scheduler) record(name string, err error) {
	if s.recorder != nil {
		s.recorder.RecordJobRun(name, err)
	}
}

// cronLogger adapts the service logger to cron.Logger
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
