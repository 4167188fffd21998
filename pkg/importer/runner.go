// Package importer runs import jobs: it reconciles each submitted row against the
// catalog and links the resulting piece into the target collection.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	reqctx "github.com/Ramsey-B/reed/pkg/context"
	"github.com/Ramsey-B/reed/pkg/jobs"
	"github.com/Ramsey-B/reed/pkg/metrics"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/resolver"
	"github.com/Ramsey-B/reed/pkg/tracing"
)

// PreviewRows is the number of rows echoed back by Preview
const PreviewRows = 2

// DefaultLockTTL bounds how long a crashed replica can block a collection
const DefaultLockTTL = 2 * time.Minute

const (
	DefaultLockWait          = 30 * time.Second
	DefaultLockRetryInterval = time.Second
)

// RowResolver reconciles one row against the catalog
type RowResolver interface {
	ResolveRow(ctx context.Context, row models.ImportRow, resolutions models.RowResolutions) (*resolver.RowResult, error)
}

type CollectionStore interface {
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	MaxSequence(ctx context.Context, collectionID string) (int, error)
	LinkPiece(ctx context.Context, link models.CollectionPiece) error
}

// Transactor runs fn in one storage transaction
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...models.CatalogEvent) error
}

// Lock is a held collection lock
type Lock interface {
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// AcquireFunc takes the lock named key. An error wrapping ErrLocked means another
// holder has it and the call may be retried.
type AcquireFunc func(ctx context.Context, key string, ttl time.Duration) (Lock, error)

// ErrLocked reports a collection lock held by another import
var ErrLocked = errors.New("collection is locked by another import")

type Option func(*Runner)

// WithEvents publishes catalog and job events after each committed row and at the end of a job
func WithEvents(publisher EventPublisher) Option {
	return func(r *Runner) {
		r.events = publisher
	}
}

// WithLocker serializes imports into the same collection
func WithLocker(acquire AcquireFunc, ttl time.Duration) Option {
	return func(r *Runner) {
		r.acquire = acquire
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithLockWait bounds how long a job waits for a collection another import holds
func WithLockWait(wait, interval time.Duration) Option {
	return func(r *Runner) {
		r.lockWait = max(wait, 0)
		if interval > 0 {
			r.lockRetry = interval
		}
	}
}

type Runner struct {
	resolver    RowResolver
	collections CollectionStore
	tx          Transactor
	jobs        *jobs.Store
	events      EventPublisher
	acquire     AcquireFunc
	lockTTL     time.Duration
	lockWait    time.Duration
	lockRetry   time.Duration
	logger      ectologger.Logger
	wg          sync.WaitGroup
}

func NewRunner(rowResolver RowResolver, collections CollectionStore, tx Transactor, store *jobs.Store, logger ectologger.Logger, opts ...Option) *Runner {
	r := &Runner{
		resolver:    rowResolver,
		collections: collections,
		tx:          tx,
		jobs:        store,
		lockTTL:     DefaultLockTTL,
		lockWait:    DefaultLockWait,
		lockRetry:   DefaultLockRetryInterval,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit validates the request, registers a running job and processes its rows in the
// background. The returned snapshot is already running.
func (r *Runner) Submit(ctx context.Context, collectionID string, req models.ImportRequest) (*models.ImportJob, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Runner.Submit")
	defer span.End()

	resolutions, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	job := r.jobs.Create(ctx, collectionID, reqctx.GetUserID(ctx), len(req.Rows))
	if err := r.jobs.Start(ctx, job.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to start import job %s", job.ID)
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start import job")
	}

	jobCtx := reqctx.SetJobID(reqctx.Detach(ctx), job.ID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Process(jobCtx, job.ID, collectionID, req.Rows, resolutions)
	}()

	snapshot, ok := r.jobs.Get(ctx, job.ID)
	if !ok {
		return job, nil
	}
	return snapshot, nil
}

// Preview validates the request and returns its first rows without importing anything
func (r *Runner) Preview(ctx context.Context, req models.ImportRequest) ([]models.ImportRow, error) {
	if _, err := parseRequest(req); err != nil {
		return nil, err
	}
	return req.Rows[:min(PreviewRows, len(req.Rows))], nil
}

// Wait blocks until every submitted job has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

func parseRequest(req models.ImportRequest) (map[int]models.RowResolutions, error) {
	if err := models.Validate(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resolutions, err := models.ParseResolutions(req.Resolutions, len(req.Rows))
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return resolutions, nil
}

// Process runs the row loop of a running job. Row errors are recorded and the loop
// continues; only failures outside a row fail the job.
func (r *Runner) Process(ctx context.Context, jobID, collectionID string, rows []models.ImportRow, resolutions map[int]models.RowResolutions) {
	ctx, span := tracing.StartSpan(ctx, "importer.Runner.Process",
		tracing.AttrJobID.String(jobID),
		tracing.AttrCollectionID.String(collectionID),
	)
	defer span.End()

	started := time.Now()
	metrics.ImportJobsInFlight.Inc()
	defer metrics.ImportJobsInFlight.Dec()
	defer func() {
		metrics.ImportJobDuration.Observe(time.Since(started).Seconds())
	}()

	defer func() {
		if p := recover(); p != nil {
			r.logger.WithContext(ctx).Errorf("import job %s panicked: %v", jobID, p)
			r.fail(ctx, jobID, collectionID, fmt.Sprintf("unexpected error: %v", p))
		}
	}()

	result, err := r.run(ctx, jobID, collectionID, rows, resolutions)
	if err != nil {
		tracing.Fail(span, err, "import job failed")
		r.fail(ctx, jobID, collectionID, err.Error())
		return
	}

	if err := r.jobs.Complete(ctx, jobID, *result); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to complete import job %s", jobID)
		return
	}
	metrics.ImportJobsTotal.WithLabelValues(string(models.JobStatusCompleted)).Inc()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":        jobID,
		"collection_id": collectionID,
		"added":         result.AddedCount,
		"errors":        len(result.Errors),
	}).Info("import job completed")

	r.publish(ctx, models.CatalogEvent{
		Type:         models.EventImportCompleted,
		JobID:        jobID,
		CollectionID: collectionID,
		AddedCount:   result.AddedCount,
		ErrorCount:   len(result.Errors),
		Message:      result.Message,
	})
}

func (r *Runner) run(ctx context.Context, jobID, collectionID string, rows []models.ImportRow, resolutions map[int]models.RowResolutions) (*models.ImportResult, error) {
	collection, err := r.collections.GetByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collectionID, err)
	}
	if collection == nil {
		return nil, fmt.Errorf("collection %s not found", collectionID)
	}

	var lock Lock
	if r.acquire != nil {
		lock, err = r.lockCollection(ctx, jobID, collectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock collection %s: %w", collectionID, err)
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				r.logger.WithContext(ctx).WithError(err).Warnf("failed to release lock for collection %s", collectionID)
			}
		}()
	}

	highest, err := r.collections.MaxSequence(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence of collection %s: %w", collectionID, err)
	}

	seq := &sequence{next: highest + 1}
	result := &models.ImportResult{Errors: []models.RowError{}}
	total := len(rows)

	for index, row := range rows {
		r.processRow(ctx, jobID, collectionID, index, row, resolutions[index], seq, result)

		if err := r.jobs.SetProgress(ctx, jobID, index+1, total); err != nil {
			return nil, fmt.Errorf("failed to record progress: %w", err)
		}
		if lock != nil {
			if err := lock.Extend(ctx, r.lockTTL); err != nil {
				r.logger.WithContext(ctx).WithError(err).Warnf("failed to extend lock for collection %s", collectionID)
			}
		}
	}

	result.Message = fmt.Sprintf("Import complete. %d pieces processed.", result.AddedCount)
	r.appendLog(ctx, jobID, result.Message)
	return result, nil
}

// lockCollection retries while another import holds the collection, up to lockWait
func (r *Runner) lockCollection(ctx context.Context, jobID, collectionID string) (Lock, error) {
	deadline := time.Now().Add(r.lockWait)
	waiting := false
	for {
		lock, err := r.acquire(ctx, "collection:"+collectionID, r.lockTTL)
		if err == nil || !errors.Is(err, ErrLocked) || !time.Now().Before(deadline) {
			return lock, err
		}
		if !waiting {
			waiting = true
			r.appendLog(ctx, jobID, "Waiting for another import into this collection...")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(r.lockRetry, time.Until(deadline))):
		}
	}
}

// processRow resolves and links one row in its own transaction
func (r *Runner) processRow(ctx context.Context, jobID, collectionID string, index int, row models.ImportRow, resolutions models.RowResolutions, seq *sequence, result *models.ImportResult) {
	ctx, span := tracing.StartSpan(ctx, "importer.Runner.processRow", tracing.AttrRow.Int(index+1))
	defer span.End()

	row = row.Trimmed()
	rowNumber := index + 1

	var (
		resolved *resolver.RowResult
		number   string
	)
	err := models.ValidateRow(row)
	if err == nil {
		r.appendLog(ctx, jobID, fmt.Sprintf("Processing row %d: %q...", rowNumber, row.Title))
		err = r.inRowTx(ctx, func(ctx context.Context) error {
			var err error
			resolved, err = r.resolver.ResolveRow(ctx, row, resolutions)
			if err != nil {
				return err
			}
			number = seq.numberFor(row.Number)
			return r.collections.LinkPiece(ctx, models.CollectionPiece{
				CollectionID: collectionID,
				PieceID:      resolved.Piece.ID,
				Number:       number,
			})
		})
	}

	if err != nil {
		tracing.Fail(span, err, "row failed")
		metrics.ImportRowsTotal.WithLabelValues("failed").Inc()
		rowErr := models.RowError{
			Index:   index,
			Row:     rowNumber,
			Message: rowMessage(err),
		}
		var ambiguous *resolver.AmbiguityError
		if errors.As(err, &ambiguous) {
			rowErr.Field = ambiguous.Field
			rowErr.Options = ambiguous.Options
		}
		result.Errors = append(result.Errors, rowErr)
		r.appendLog(ctx, jobID, fmt.Sprintf("Error on row %d: %s", rowNumber, rowErr.Message))
		return
	}

	seq.commit(number)
	result.AddedCount++
	metrics.ImportRowsTotal.WithLabelValues("added").Inc()

	r.logCreated(ctx, jobID, resolved)
	r.appendLog(ctx, jobID, fmt.Sprintf("-> Linked to collection with number %s.", number))
	r.publish(ctx, createdEvents(jobID, collectionID, resolved)...)
}

// inRowTx runs fn in a transaction and turns a panic into a row error. The transaction
// has already rolled back when the panic reaches here.
func (r *Runner) inRowTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithContext(ctx).Errorf("import row panicked: %v", p)
			err = fmt.Errorf("unexpected error: %v", p)
		}
	}()
	return r.tx.InTx(ctx, fn)
}

// rowMessage drops the status prefix of storage errors
func rowMessage(err error) string {
	var httpErr *httperror.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}

func (r *Runner) logCreated(ctx context.Context, jobID string, resolved *resolver.RowResult) {
	if resolved.ComposerCreated {
		r.appendLog(ctx, jobID, fmt.Sprintf("Composer %q created.", resolved.Composer.Name))
	}
	if resolved.AuthorCreated {
		r.appendLog(ctx, jobID, fmt.Sprintf("Author %q created.", resolved.Author.Name))
	}
	if resolved.CategoryCreated {
		r.appendLog(ctx, jobID, fmt.Sprintf("Category %q created.", resolved.Category.Name))
	}
	if resolved.PieceCreated {
		r.appendLog(ctx, jobID, fmt.Sprintf("Piece %q created.", resolved.Piece.Title))
	} else {
		r.appendLog(ctx, jobID, fmt.Sprintf("Piece %q already exists.", resolved.Piece.Title))
	}
}

func createdEvents(jobID, collectionID string, resolved *resolver.RowResult) []models.CatalogEvent {
	events := make([]models.CatalogEvent, 0, 4)
	add := func(eventType, id, name string) {
		events = append(events, models.CatalogEvent{
			Type:         eventType,
			EntityID:     id,
			Name:         name,
			JobID:        jobID,
			CollectionID: collectionID,
		})
	}
	if resolved.ComposerCreated {
		add(models.EventComposerCreated, resolved.Composer.ID, resolved.Composer.Name)
	}
	if resolved.AuthorCreated {
		add(models.EventAuthorCreated, resolved.Author.ID, resolved.Author.Name)
	}
	if resolved.CategoryCreated {
		add(models.EventCategoryCreated, resolved.Category.ID, resolved.Category.Name)
	}
	if resolved.PieceCreated {
		add(models.EventPieceCreated, resolved.Piece.ID, resolved.Piece.Title)
	}
	return events
}

func (r *Runner) fail(ctx context.Context, jobID, collectionID, message string) {
	r.appendLog(ctx, jobID, "Import failed: "+message)
	if err := r.jobs.Fail(ctx, jobID, message); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to mark import job %s as failed", jobID)
		return
	}
	metrics.ImportJobsTotal.WithLabelValues(string(models.JobStatusFailed)).Inc()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":        jobID,
		"collection_id": collectionID,
	}).Errorf("import job failed: %s", message)

	r.publish(ctx, models.CatalogEvent{
		Type:         models.EventImportFailed,
		JobID:        jobID,
		CollectionID: collectionID,
		Message:      message,
	})
}

func (r *Runner) appendLog(ctx context.Context, jobID, message string) {
	if err := r.jobs.AppendLog(ctx, jobID, message); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("failed to append log to import job %s", jobID)
	}
}

func (r *Runner) publish(ctx context.Context, events ...models.CatalogEvent) {
	if r.events == nil || len(events) == 0 {
		return
	}
	if err := r.events.Publish(ctx, events...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("failed to publish %d catalog events", len(events))
	}
}

// sequence hands out collection numbers. A number is consumed only when its row commits.
type sequence struct {
	next int
}

// numberFor returns the explicit number of a row, or the next free one
func (s *sequence) numberFor(explicit models.SequenceNumber) string {
	if explicit != "" {
		return string(explicit)
	}
	return strconv.Itoa(s.next)
}

// commit advances the counter past a number that was linked
func (s *sequence) commit(number string) {
	if n, ok := models.SequenceNumber(number).Int(); ok && n >= s.next {
		s.next = n + 1
	}
}
