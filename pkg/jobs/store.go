// Package jobs keeps the state of asynchronous import jobs in memory
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/google/uuid"
)

const (
	// DefaultRetention is how long a finished job stays queryable
	DefaultRetention = 5 * time.Minute
	logTimeFormat    = "15:04:05"
)

var (
	ErrJobNotFound = errors.New("import job not found")
	ErrJobFinished = errors.New("import job already finished")
)

// Mirror persists job snapshots outside the process so that any replica can answer
// status queries. Load returns nil, nil for unknown jobs.
type Mirror interface {
	Save(ctx context.Context, job *models.ImportJob, ttl time.Duration) error
	Load(ctx context.Context, id string) (*models.ImportJob, error)
}

type Option func(*Store)

// WithMirror copies every state change of a job to m
func WithMirror(m Mirror) Option {
	return func(s *Store) {
		s.mirror = m
	}
}

// WithClock replaces time.Now for log stamps and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type entry struct {
	mu    sync.Mutex
	job   models.ImportJob
	timer *time.Timer
}

// Store is the registry of import jobs. The registry lock guards the map and each
// entry lock serializes the mutations of one job.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*entry
	retention time.Duration
	now       func() time.Time
	mirror    Mirror
	logger    ectologger.Logger
}

func NewStore(retention time.Duration, logger ectologger.Logger, opts ...Option) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		jobs:      make(map[string]*entry),
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a pending job expecting total rows
func (s *Store) Create(ctx context.Context, collectionID, submittedBy string, total int) *models.ImportJob {
	now := s.now().UTC()
	e := &entry{job: models.ImportJob{
		ID:           uuid.New().String(),
		CollectionID: collectionID,
		SubmittedBy:  submittedBy,
		Status:       models.JobStatusPending,
		Progress:     models.Progress{Current: 0, Total: total},
		Logs:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}}

	s.mu.Lock()
	s.jobs[e.job.ID] = e
	s.mu.Unlock()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":        e.job.ID,
		"collection_id": collectionID,
		"rows":          total,
	}).Info("import job created")

	snapshot := e.job.Clone()
	s.save(ctx, snapshot)
	return snapshot
}

// Get returns a snapshot of the job, falling back to the mirror for jobs owned by
// another replica
func (s *Store) Get(ctx context.Context, id string) (*models.ImportJob, bool) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()

	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.job.Clone(), true
	}

	if s.mirror == nil {
		return nil, false
	}
	job, err := s.mirror.Load(ctx, id)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warnf("failed to load import job %s from mirror", id)
		return nil, false
	}
	return job, job != nil
}

// List returns snapshots of the retained jobs, newest first
func (s *Store) List(ctx context.Context) []*models.ImportJob {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	jobs := make([]*models.ImportJob, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		jobs = append(jobs, e.job.Clone())
		e.mu.Unlock()
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// Start moves a pending job to running
func (s *Store) Start(ctx context.Context, id string) error {
	return s.update(ctx, id, func(job *models.ImportJob) {
		job.Status = models.JobStatusRunning
	})
}

// AppendLog adds a line stamped with the wall-clock time
func (s *Store) AppendLog(ctx context.Context, id, message string) error {
	line := "[" + s.now().Format(logTimeFormat) + "] " + message
	return s.update(ctx, id, func(job *models.ImportJob) {
		job.Logs = append(job.Logs, line)
	})
}

// SetProgress records processed rows; current is clamped to [0, total]
func (s *Store) SetProgress(ctx context.Context, id string, current, total int) error {
	current = max(0, min(current, total))
	return s.update(ctx, id, func(job *models.ImportJob) {
		job.Progress = models.Progress{Current: current, Total: total}
	})
}

// Complete stores the result and schedules the job for removal
func (s *Store) Complete(ctx context.Context, id string, result models.ImportResult) error {
	return s.finish(ctx, id, func(job *models.ImportJob) {
		job.Status = models.JobStatusCompleted
		job.Result = &result
	})
}

// Fail records a job-fatal error and schedules the job for removal
func (s *Store) Fail(ctx context.Context, id string, message string) error {
	return s.finish(ctx, id, func(job *models.ImportJob) {
		job.Status = models.JobStatusFailed
		job.Error = &message
	})
}

func (s *Store) finish(ctx context.Context, id string, apply func(job *models.ImportJob)) error {
	err := s.update(ctx, id, func(job *models.ImportJob) {
		apply(job)
		completedAt := job.UpdatedAt
		job.CompletedAt = &completedAt
	})
	if err != nil {
		return err
	}

	s.mu.RLock()
	e := s.jobs[id]
	s.mu.RUnlock()
	if e == nil {
		return nil
	}

	e.mu.Lock()
	e.timer = time.AfterFunc(s.retention, func() { s.remove(id) })
	e.mu.Unlock()
	return nil
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

func (s *Store) update(ctx context.Context, id string, apply func(job *models.ImportJob)) error {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}

	e.mu.Lock()
	if e.job.Status.IsTerminal() {
		e.mu.Unlock()
		return ErrJobFinished
	}
	apply(&e.job)
	e.job.UpdatedAt = s.now().UTC()
	snapshot := e.job.Clone()
	e.mu.Unlock()

	s.save(ctx, snapshot)
	return nil
}

func (s *Store) save(ctx context.Context, job *models.ImportJob) {
	if s.mirror == nil {
		return
	}
	ttl := s.retention
	if !job.Status.IsTerminal() {
		// unfinished jobs are kept until they reach a terminal state
		ttl = 24 * time.Hour
	}
	if err := s.mirror.Save(ctx, job, ttl); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warnf("failed to mirror import job %s", job.ID)
	}
}

// Close stops pending removals
func (s *Store) Close() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.jobs {
		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
		}
		e.mu.Unlock()
	}
}
