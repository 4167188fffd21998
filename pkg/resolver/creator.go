package resolver

import (
	"context"
	"unicode/utf8"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/reed/pkg/matching"
	"github.com/Ramsey-B/reed/pkg/metrics"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/normalizers"
	"github.com/Ramsey-B/reed/pkg/tracing"
)

// lastNamePrefixLength bounds the prefix used to pre-filter by last name so that
// spelling variants near the end of a name ("Rachmaninov") still share it
const lastNamePrefixLength = 4

type creatorField struct {
	kind  models.CreatorKind
	store CreatorStore
	// prefixCandidates adds last-name-prefix matches to the sampled candidates
	prefixCandidates bool
}

func composerField(store CreatorStore) creatorField {
	return creatorField{kind: models.CreatorKindComposer, store: store, prefixCandidates: true}
}

func authorField(store CreatorStore) creatorField {
	return creatorField{kind: models.CreatorKindAuthor, store: store}
}

// resolveCreator applies a resolution, or the automatic pipeline: abbreviation, exact
// name, ranked candidates, then creation in "Last, First" form.
func (r *Resolver) resolveCreator(ctx context.Context, field creatorField, query string, resolution models.Resolution) (*models.Creator, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.resolveCreator")
	defer span.End()

	entity := string(field.kind)

	switch resolution.Kind {
	case models.ResolutionUseExisting:
		creator, err := field.store.GetByID(ctx, resolution.EntityID)
		if err != nil {
			return nil, false, err
		}
		if creator == nil {
			metrics.RecordDecision(entity, metrics.OutcomeNotFound)
			return nil, false, &NotFoundError{Field: entity, ID: resolution.EntityID}
		}
		metrics.RecordDecision(entity, metrics.OutcomeOverride)
		return creator, false, nil
	case models.ResolutionForceCreate:
		metrics.RecordDecision(entity, metrics.OutcomeOverride)
		return r.createCreator(ctx, field, query)
	}

	lastName := normalizers.LastName(query)
	var sameLastName []models.Creator
	if lastName != "" {
		var err error
		sameLastName, err = field.store.ListByNamePrefix(ctx, lastName, r.config.CandidateSampleSize)
		if err != nil {
			return nil, false, err
		}
	}

	// "J. S. Bach" is checked as "Bach, J. S."
	if match, ok := matching.ResolveAbbreviation(normalizers.FormatPersonName(query), sameLastName, creatorName); ok {
		metrics.RecordDecision(entity, metrics.OutcomeMatched)
		return &match, false, nil
	}

	exact, err := r.findExact(ctx, field.store, query)
	if err != nil {
		return nil, false, err
	}
	if exact != nil {
		metrics.RecordDecision(entity, metrics.OutcomeMatched)
		return exact, false, nil
	}

	candidates, err := r.creatorCandidates(ctx, field, lastName)
	if err != nil {
		return nil, false, err
	}

	ranked := matching.Rank(r.scorer, query, candidates, creatorName, r.config.MinScore, r.config.MaxResults)
	decision := matching.Decide(r.policy, ranked)
	switch {
	case decision.Ambiguous:
		metrics.RecordDecision(entity, metrics.OutcomeAmbiguous)
		return nil, false, &AmbiguityError{
			Field: entity,
			Query: query,
			Options: ectolinq.Map(decision.Options, func(c matching.Candidate[models.Creator]) models.MatchOption {
				return models.MatchOption{ID: c.Item.ID, Name: c.Item.Name, Score: c.Score}
			}),
		}
	case decision.Matched():
		metrics.RecordDecision(entity, metrics.OutcomeMatched)
		creator := decision.Match.Item
		return &creator, false, nil
	}

	metrics.RecordDecision(entity, metrics.OutcomeCreated)
	return r.createCreator(ctx, field, query)
}

// findExact looks the name up as written, then in "Last, First" form
func (r *Resolver) findExact(ctx context.Context, store CreatorStore, query string) (*models.Creator, error) {
	creator, err := store.FindByName(ctx, query)
	if err != nil || creator != nil {
		return creator, err
	}

	formatted := normalizers.FormatPersonName(query)
	if formatted == query {
		return nil, nil
	}
	return store.FindByName(ctx, formatted)
}

// creatorCandidates unions last-name-prefix matches with a bounded sample of the
// catalog, deduplicated by id
func (r *Resolver) creatorCandidates(ctx context.Context, field creatorField, lastName string) ([]models.Creator, error) {
	var candidates []models.Creator

	if field.prefixCandidates && lastName != "" {
		prefix := lastName
		if utf8.RuneCountInString(prefix) > lastNamePrefixLength {
			prefix = string([]rune(prefix)[:lastNamePrefixLength])
		}
		byPrefix, err := field.store.ListByNamePrefix(ctx, prefix, r.config.CandidateSampleSize)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, byPrefix...)
	}

	sample, err := field.store.List(ctx, r.config.CandidateSampleSize)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, sample...)

	return ectolinq.DistinctBy(candidates, func(c models.Creator) string { return c.ID }), nil
}

func (r *Resolver) createCreator(ctx context.Context, field creatorField, query string) (*models.Creator, bool, error) {
	name := normalizers.FormatPersonName(query)
	creator, err := field.store.Create(ctx, name)
	if err != nil {
		return nil, false, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"kind": field.kind,
		"id":   creator.ID,
		"name": creator.Name,
	}).Debug("created creator")
	return creator, true, nil
}

func creatorName(creator models.Creator) string {
	return creator.Name
}
