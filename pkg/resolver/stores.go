package resolver

import (
	"context"

	"github.com/Ramsey-B/reed/pkg/models"
)

// CreatorStore reads and creates composers or authors. Lookups return nil, nil when
// nothing matches.
type CreatorStore interface {
	GetByID(ctx context.Context, id string) (*models.Creator, error)
	// FindByName matches the whole name case-insensitively
	FindByName(ctx context.Context, name string) (*models.Creator, error)
	// ListByNamePrefix returns creators whose name starts with prefix, case-insensitively
	ListByNamePrefix(ctx context.Context, prefix string, limit int) ([]models.Creator, error)
	// List returns up to limit creators ordered by name; limit <= 0 returns all
	List(ctx context.Context, limit int) ([]models.Creator, error)
	Create(ctx context.Context, name string) (*models.Creator, error)
}

type CategoryStore interface {
	// FindOrCreate matches the name case-insensitively and reports whether it created the row
	FindOrCreate(ctx context.Context, name string) (*models.Category, bool, error)
}

// PieceStore reads and creates pieces. Reads fill ComposerName.
type PieceStore interface {
	GetByID(ctx context.Context, id string) (*models.Piece, error)
	ListByComposer(ctx context.Context, composerID string) ([]models.Piece, error)
	ListByTitlePrefix(ctx context.Context, prefix string, limit int) ([]models.Piece, error)
	Create(ctx context.Context, piece models.Piece) (*models.Piece, error)
}
