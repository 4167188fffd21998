package resolver

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/reed/pkg/models"
)

// AmbiguityError reports a field with several plausible catalog entries. The row must
// be resubmitted with a resolution for that field.
type AmbiguityError struct {
	Field   string
	Query   string
	Options []models.MatchOption
}

func (e *AmbiguityError) Error() string {
	names := make([]string, 0, len(e.Options))
	for _, option := range e.Options {
		names = append(names, fmt.Sprintf("%s (%.2f)", option.Name, option.Score))
	}
	return fmt.Sprintf("ambiguous %s %q, choose one of: %s", e.Field, e.Query, strings.Join(names, ", "))
}

// NotFoundError reports a resolution that names an entity which does not exist
type NotFoundError struct {
	Field string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Field, e.ID)
}
