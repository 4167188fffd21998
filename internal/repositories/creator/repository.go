package creator

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/database"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

var columns = []string{"id", "name", "created_at"}

// Repository handles composer or author persistence. Both tables share one shape.
type Repository struct {
	db     database.DB
	table  string
	kind   models.CreatorKind
	logger ectologger.Logger
}

// NewComposerRepository creates a repository over the composers table
func NewComposerRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, table: "composers", kind: models.CreatorKindComposer, logger: logger}
}

// NewAuthorRepository creates a repository over the authors table
func NewAuthorRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, table: "authors", kind: models.CreatorKindAuthor, logger: logger}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Creator, error) {
	ctx, span := tracing.StartSpan(ctx, "creator.Repository.GetByID")
	defer span.End()

	if uuid.Validate(id) != nil {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(r.table)
	sb.Where(sb.Equal("id", id))

	return r.get(ctx, sb, "GetByID")
}

// FindByName matches the whole name case-insensitively. The oldest entry wins when
// the catalog already holds duplicates.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Creator, error) {
	ctx, span := tracing.StartSpan(ctx, "creator.Repository.FindByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(r.table)
	sb.Where(sb.Equal("LOWER(name)", strings.ToLower(name)))
	sb.OrderBy("created_at ASC")
	sb.Limit(1)

	return r.get(ctx, sb, "FindByName")
}

func (r *Repository) ListByNamePrefix(ctx context.Context, prefix string, limit int) ([]models.Creator, error) {
	ctx, span := tracing.StartSpan(ctx, "creator.Repository.ListByNamePrefix")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(r.table)
	sb.Where(sb.Like("LOWER(name)", database.PrefixPattern(strings.ToLower(prefix))))
	sb.OrderBy("name ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	return r.list(ctx, sb, "ListByNamePrefix")
}

// List returns up to limit creators ordered by name; limit <= 0 returns all
func (r *Repository) List(ctx context.Context, limit int) ([]models.Creator, error) {
	ctx, span := tracing.StartSpan(ctx, "creator.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(r.table)
	sb.OrderBy("name ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	return r.list(ctx, sb, "List")
}

func (r *Repository) Create(ctx context.Context, name string) (*models.Creator, error) {
	ctx, span := tracing.StartSpan(ctx, "creator.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Create",
		"kind":   r.kind,
		"name":   name,
	})

	if strings.TrimSpace(name) == "" {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "%s name is required", r.kind)
	}

	creator := &models.Creator{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(r.table)
	ib.Cols(columns...)
	ib.Values(creator.ID, creator.Name, creator.CreatedAt)

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Errorf("Failed to create %s", r.kind)
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create %s", r.kind)
	}

	log.WithFields(map[string]any{"id": creator.ID}).Info("Created creator")
	return creator, nil
}

func (r *Repository) get(ctx context.Context, sb *sqlbuilder.SelectBuilder, method string) (*models.Creator, error) {
	query, args := sb.Build()
	var creator models.Creator
	if err := database.Conn(ctx, r.db).GetContext(ctx, &creator, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to get %s (%s)", r.kind, method)
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get %s", r.kind)
	}
	return &creator, nil
}

func (r *Repository) list(ctx context.Context, sb *sqlbuilder.SelectBuilder, method string) ([]models.Creator, error) {
	query, args := sb.Build()
	creators := []models.Creator{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &creators, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to list %ss (%s)", r.kind, method)
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list %ss", r.kind)
	}
	return creators, nil
}
