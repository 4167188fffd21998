// Package resolver reconciles the free-text references of one import row against the
// catalog: composer, then author, then category, then piece.
package resolver

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/matching"
	"github.com/Ramsey-B/reed/pkg/metrics"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/normalizers"
	"github.com/Ramsey-B/reed/pkg/tracing"
)

// DefaultVoicing is used for created pieces whose row names no voicing
const DefaultVoicing = "SATB"

// Stores groups the catalog collaborators of a Resolver
type Stores struct {
	Composers  CreatorStore
	Authors    CreatorStore
	Categories CategoryStore
	Pieces     PieceStore
}

type Resolver struct {
	stores Stores
	scorer *matching.Scorer
	policy matching.Policy
	config matching.Config
	logger ectologger.Logger
}

func NewResolver(stores Stores, config matching.Config, logger ectologger.Logger) *Resolver {
	return &Resolver{
		stores: stores,
		scorer: matching.NewScorer(config),
		policy: matching.NewPolicy(config),
		config: config,
		logger: logger,
	}
}

// RowResult holds the entities a row resolved to and which of them were created
type RowResult struct {
	Composer        *models.Creator
	ComposerCreated bool
	Author          *models.Creator
	AuthorCreated   bool
	Category        *models.Category
	CategoryCreated bool
	Piece           *models.Piece
	PieceCreated    bool
}

// ResolveRow resolves every reference of row. Errors are scoped to the row: validation
// errors, *AmbiguityError, *NotFoundError or a storage failure.
func (r *Resolver) ResolveRow(ctx context.Context, row models.ImportRow, resolutions models.RowResolutions) (*RowResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ResolveRow")
	defer span.End()

	row = row.Trimmed()
	if err := models.ValidateRow(row); err != nil {
		return nil, err
	}

	result := &RowResult{}
	var err error

	result.Composer, result.ComposerCreated, err = r.resolveCreator(ctx, composerField(r.stores.Composers), row.Composer, resolutions.Composer)
	if err != nil {
		return nil, err
	}

	if row.Author != "" || resolutions.Author.Kind == models.ResolutionUseExisting {
		result.Author, result.AuthorCreated, err = r.resolveCreator(ctx, authorField(r.stores.Authors), row.Author, resolutions.Author)
		if err != nil {
			return nil, err
		}
	}

	if row.Category != "" {
		result.Category, result.CategoryCreated, err = r.stores.Categories.FindOrCreate(ctx, row.Category)
		if err != nil {
			return nil, err
		}
		if result.CategoryCreated {
			metrics.RecordDecision("category", metrics.OutcomeCreated)
		} else {
			metrics.RecordDecision("category", metrics.OutcomeMatched)
		}
	}

	result.Piece, result.PieceCreated, err = r.resolvePiece(ctx, row, result, resolutions.Piece)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *Resolver) resolvePiece(ctx context.Context, row models.ImportRow, resolved *RowResult, resolution models.Resolution) (*models.Piece, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.resolvePiece")
	defer span.End()

	switch resolution.Kind {
	case models.ResolutionUseExisting:
		piece, err := r.stores.Pieces.GetByID(ctx, resolution.EntityID)
		if err != nil {
			return nil, false, err
		}
		if piece == nil {
			metrics.RecordDecision("piece", metrics.OutcomeNotFound)
			return nil, false, &NotFoundError{Field: "piece", ID: resolution.EntityID}
		}
		metrics.RecordDecision("piece", metrics.OutcomeOverride)
		return piece, false, nil
	case models.ResolutionForceCreate:
		metrics.RecordDecision("piece", metrics.OutcomeOverride)
		return r.createPiece(ctx, row, resolved)
	}

	candidates, err := r.pieceCandidates(ctx, row.Title, resolved.Composer)
	if err != nil {
		return nil, false, err
	}

	ranked := matching.Rank(r.scorer, row.Title, candidates, pieceTitle, r.config.MinScore, r.config.MaxResults)
	decision := matching.Decide(r.policy, ranked)
	switch {
	case decision.Ambiguous:
		metrics.RecordDecision("piece", metrics.OutcomeAmbiguous)
		return nil, false, &AmbiguityError{
			Field: "piece",
			Query: row.Title,
			Options: ectolinq.Map(decision.Options, func(c matching.Candidate[models.Piece]) models.MatchOption {
				return models.MatchOption{ID: c.Item.ID, Name: c.Item.DisplayName(), Score: c.Score}
			}),
		}
	case decision.Matched():
		metrics.RecordDecision("piece", metrics.OutcomeMatched)
		piece := decision.Match.Item
		return &piece, false, nil
	}

	metrics.RecordDecision("piece", metrics.OutcomeCreated)
	return r.createPiece(ctx, row, resolved)
}

// pieceCandidates returns the composer's pieces, or title-prefix matches when the row
// has no resolved composer
func (r *Resolver) pieceCandidates(ctx context.Context, title string, composer *models.Creator) ([]models.Piece, error) {
	if composer != nil {
		return r.stores.Pieces.ListByComposer(ctx, composer.ID)
	}

	tokens := normalizers.Tokenize(title)
	if len(tokens) == 0 {
		return nil, nil
	}
	return r.stores.Pieces.ListByTitlePrefix(ctx, tokens[0], r.config.CandidateSampleSize)
}

func (r *Resolver) createPiece(ctx context.Context, row models.ImportRow, resolved *RowResult) (*models.Piece, bool, error) {
	piece := models.Piece{
		Title:        row.Title,
		Voicing:      row.Voicing,
		Key:          row.Key,
		LyricsSource: row.LyricsSource,
	}
	if piece.Voicing == "" {
		piece.Voicing = DefaultVoicing
	}
	if resolved.Composer != nil {
		piece.ComposerID = &resolved.Composer.ID
		piece.ComposerName = &resolved.Composer.Name
	}
	if resolved.Author != nil {
		piece.AuthorID = &resolved.Author.ID
	}
	if resolved.Category != nil {
		piece.CategoryID = &resolved.Category.ID
	}

	created, err := r.stores.Pieces.Create(ctx, piece)
	if err != nil {
		return nil, false, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"piece_id": created.ID,
		"title":    created.Title,
	}).Debug("created piece")
	return created, true, nil
}

func pieceTitle(piece models.Piece) string {
	return piece.Title
}
