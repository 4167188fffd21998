package models

import "time"

// JobStatus is the lifecycle state of an import job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further mutation is allowed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Progress counts processed rows. Current never exceeds Total.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ImportJob is a snapshot of one asynchronous import
type ImportJob struct {
	ID           string        `json:"id"`
	CollectionID string        `json:"collectionId,omitempty"`
	SubmittedBy  string        `json:"submittedBy,omitempty"`
	Status       JobStatus     `json:"status"`
	Progress     Progress      `json:"progress"`
	Logs         []string      `json:"logs"`
	Result       *ImportResult `json:"result"`
	Error        *string       `json:"error"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

// Clone returns a deep copy that shares no mutable state with the receiver
func (j *ImportJob) Clone() *ImportJob {
	if j == nil {
		return nil
	}
	clone := *j
	clone.Logs = append([]string{}, j.Logs...)
	if j.Result != nil {
		result := *j.Result
		result.Errors = make([]RowError, len(j.Result.Errors))
		for i, rowErr := range j.Result.Errors {
			rowErr.Options = append([]MatchOption(nil), rowErr.Options...)
			result.Errors[i] = rowErr
		}
		clone.Result = &result
	}
	if j.Error != nil {
		msg := *j.Error
		clone.Error = &msg
	}
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}

// ImportResult is the aggregate outcome of a completed job
type ImportResult struct {
	Message    string     `json:"message"`
	AddedCount int        `json:"addedCount"`
	Errors     []RowError `json:"errors"`
}

// RowError records a failed row. Index is the 0-based key to use when resubmitting
// with a resolution. Field and Options are set when the row was ambiguous.
type RowError struct {
	Index   int           `json:"index"`
	Row     int           `json:"row"`
	Message string        `json:"message"`
	Field   string        `json:"field,omitempty"`
	Options []MatchOption `json:"options,omitempty"`
}

// MatchOption is one plausible catalog entry offered to a human
type MatchOption struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
