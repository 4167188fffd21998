package models

import "time"

// Catalog event types
const (
	EventComposerCreated = "composer.created"
	EventAuthorCreated   = "author.created"
	EventCategoryCreated = "category.created"
	EventPieceCreated    = "piece.created"
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
)

// CatalogEvent announces a catalog change or the end of an import job
type CatalogEvent struct {
	Type         string    `json:"type"`
	EntityID     string    `json:"entityId,omitempty"`
	Name         string    `json:"name,omitempty"`
	JobID        string    `json:"jobId,omitempty"`
	CollectionID string    `json:"collectionId,omitempty"`
	AddedCount   int       `json:"addedCount,omitempty"`
	ErrorCount   int       `json:"errorCount,omitempty"`
	Message      string    `json:"message,omitempty"`
	TraceID      string    `json:"traceId,omitempty"`
	SpanID       string    `json:"spanId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Key partitions events so that one job's events stay ordered
func (e CatalogEvent) Key() string {
	if e.JobID != "" {
		return e.JobID
	}
	return e.EntityID
}
