package category

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

// Repository handles category persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindOrCreate returns the category named name, ignoring case, creating it when missing.
// The unique index on LOWER(name) settles concurrent creates.
func (r *Repository) FindOrCreate(ctx context.Context, name string) (*models.Category, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "category.Repository.FindOrCreate")
	defer span.End()

	existing, err := r.findByName(ctx, name)
	if err != nil || existing != nil {
		return existing, false, err
	}

	category := &models.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("categories")
	ib.Cols("id", "name", "created_at")
	ib.Values(category.ID, category.Name, category.CreatedAt)
	ib.SQL("ON CONFLICT DO NOTHING")

	query, args := ib.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to create category")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create category")
	}

	if inserted, _ := result.RowsAffected(); inserted == 0 {
		existing, err := r.findByName(ctx, name)
		return existing, false, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": category.ID, "name": name}).Info("Created category")
	return category, true, nil
}

func (r *Repository) findByName(ctx context.Context, name string) (*models.Category, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "created_at")
	sb.From("categories")
	sb.Where(sb.Equal("LOWER(name)", strings.ToLower(name)))

	query, args := sb.Build()
	var category models.Category
	if err := database.Conn(ctx, r.db).GetContext(ctx, &category, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find category")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find category")
	}
	return &category, nil
}
