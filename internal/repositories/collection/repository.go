package collection

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/database"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

// Repository handles collections and the pieces linked into them
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

func (r *Repository) Create(ctx context.Context, title, prefix string) (*models.Collection, error) {
	ctx, span := tracing.StartSpan(ctx, "collection.Repository.Create")
	defer span.End()

	collection := &models.Collection{
		ID:        uuid.New().String(),
		Title:     title,
		Prefix:    prefix,
		CreatedAt: time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("collections")
	ib.Cols("id", "title", "prefix", "created_at")
	ib.Values(collection.ID, collection.Title, collection.Prefix, collection.CreatedAt)

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create collection")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create collection")
	}
	return collection, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	ctx, span := tracing.StartSpan(ctx, "collection.Repository.GetByID")
	defer span.End()

	if uuid.Validate(id) != nil {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "title", "prefix", "created_at")
	sb.From("collections")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var collection models.Collection
	if err := database.Conn(ctx, r.db).GetContext(ctx, &collection, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get collection")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get collection")
	}
	return &collection, nil
}

// MaxSequence returns the highest purely numeric number in the collection, 0 when none
func (r *Repository) MaxSequence(ctx context.Context, collectionID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "collection.Repository.MaxSequence")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COALESCE(MAX(number_in_collection::bigint), 0)")
	sb.From("collection_pieces")
	sb.Where(
		sb.Equal("collection_id", collectionID),
		"number_in_collection ~ "+sb.Var(`^[0-9]{1,18}$`),
	)

	query, args := sb.Build()
	var highest int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &highest, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read collection sequence")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read collection sequence")
	}
	return highest, nil
}

// LinkPiece adds the piece to the collection, replacing the number of an existing link
func (r *Repository) LinkPiece(ctx context.Context, link models.CollectionPiece) error {
	ctx, span := tracing.StartSpan(ctx, "collection.Repository.LinkPiece")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("collection_pieces")
	ib.Cols("collection_id", "piece_id", "number_in_collection")
	ib.Values(link.CollectionID, link.PieceID, link.Number)
	ib.SQL("ON CONFLICT (collection_id, piece_id) DO UPDATE SET number_in_collection = EXCLUDED.number_in_collection")

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection_id": link.CollectionID,
			"piece_id":      link.PieceID,
		}).Error("Failed to link piece")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to link piece to collection")
	}
	return nil
}

// Links returns the collection's links in insertion order
func (r *Repository) Links(ctx context.Context, collectionID string) ([]models.CollectionPiece, error) {
	ctx, span := tracing.StartSpan(ctx, "collection.Repository.Links")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("collection_id", "piece_id", "number_in_collection")
	sb.From("collection_pieces")
	sb.Where(sb.Equal("collection_id", collectionID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	links := []models.CollectionPiece{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list collection pieces")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list collection pieces")
	}
	return links, nil
}
