package piece

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

// Repository handles piece persistence. Reads join the composer name.
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

func selectPieces() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"p.id", "p.title", "p.composer_id", "p.author_id", "p.category_id",
		"p.voicing", "p.musical_key", "p.lyrics_source", "p.created_at",
		sb.As("c.name", "composer_name"),
	)
	sb.From(sb.As("pieces", "p"))
	sb.JoinWithOption(sqlbuilder.LeftJoin, sb.As("composers", "c"), "c.id = p.composer_id")
	return sb
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Piece, error) {
	ctx, span := tracing.StartSpan(ctx, "piece.Repository.GetByID")
	defer span.End()

	if uuid.Validate(id) != nil {
		return nil, nil
	}

	sb := selectPieces()
	sb.Where(sb.Equal("p.id", id))

	query, args := sb.Build()
	var piece models.Piece
	if err := database.Conn(ctx, r.db).GetContext(ctx, &piece, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get piece")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get piece")
	}
	return &piece, nil
}

func (r *Repository) ListByComposer(ctx context.Context, composerID string) ([]models.Piece, error) {
	ctx, span := tracing.StartSpan(ctx, "piece.Repository.ListByComposer")
	defer span.End()

	sb := selectPieces()
	sb.Where(sb.Equal("p.composer_id", composerID))
	sb.OrderBy("p.created_at ASC")

	return r.list(ctx, sb)
}

func (r *Repository) ListByTitlePrefix(ctx context.Context, prefix string, limit int) ([]models.Piece, error) {
	ctx, span := tracing.StartSpan(ctx, "piece.Repository.ListByTitlePrefix")
	defer span.End()

	sb := selectPieces()
	sb.Where(sb.Like("LOWER(p.title)", database.PrefixPattern(strings.ToLower(prefix))))
	sb.OrderBy("p.created_at ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	return r.list(ctx, sb)
}

func (r *Repository) Create(ctx context.Context, piece models.Piece) (*models.Piece, error) {
	ctx, span := tracing.StartSpan(ctx, "piece.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Create",
		"title":  piece.Title,
	})

	piece.ID = uuid.New().String()
	piece.CreatedAt = time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("pieces")
	ib.Cols("id", "title", "composer_id", "author_id", "category_id", "voicing", "musical_key", "lyrics_source", "created_at")
	ib.Values(piece.ID, piece.Title, piece.ComposerID, piece.AuthorID, piece.CategoryID, piece.Voicing, piece.Key, piece.LyricsSource, piece.CreatedAt)

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create piece")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create piece")
	}

	log.WithFields(map[string]any{"id": piece.ID}).Info("Created piece")
	return &piece, nil
}

func (r *Repository) list(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.Piece, error) {
	query, args := sb.Build()
	pieces := []models.Piece{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &pieces, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pieces")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pieces")
	}
	return pieces, nil
}
