package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/catalog/memory"
	"github.com/Ramsey-B/reed/pkg/matching"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(catalog *memory.Catalog) *Resolver {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewResolver(Stores{
		Composers:  catalog.Composers(),
		Authors:    catalog.Authors(),
		Categories: catalog.Categories(),
		Pieces:     catalog.Pieces(),
	}, matching.DefaultConfig(), logger)
}

func seedComposers(t *testing.T, catalog *memory.Catalog, names ...string) []*models.Creator {
	t.Helper()
	creators := make([]*models.Creator, 0, len(names))
	for _, name := range names {
		creator, err := catalog.Composers().Create(context.Background(), name)
		require.NoError(t, err)
		creators = append(creators, creator)
	}
	return creators
}

func seedPiece(t *testing.T, catalog *memory.Catalog, title string, composer *models.Creator) *models.Piece {
	t.Helper()
	piece, err := catalog.Pieces().Create(context.Background(), models.Piece{Title: title, ComposerID: &composer.ID})
	require.NoError(t, err)
	return piece
}

func composerNames(t *testing.T, catalog *memory.Catalog) []string {
	t.Helper()
	composers, err := catalog.Composers().List(context.Background(), 0)
	require.NoError(t, err)
	names := make([]string, 0, len(composers))
	for _, composer := range composers {
		names = append(names, composer.Name)
	}
	return names
}

func TestResolveRow_ComposerMatching(t *testing.T) {
	tests := []struct {
		name          string
		existing      []string
		query         string
		wantName      string
		wantCreated   bool
		wantComposers int
	}{
		{name: "surname only", existing: []string{"Bach, Johann Sebastian", "Mendelssohn, Felix", "Rutter, John"}, query: "Rutter", wantName: "Rutter, John", wantComposers: 3},
		{name: "abbreviated given names", existing: []string{"Bach, Johann Sebastian"}, query: "J. S. Bach", wantName: "Bach, Johann Sebastian", wantComposers: 1},
		{name: "abbreviation in catalog order", existing: []string{"Bach, Johann Sebastian", "Bach, Carl Philipp Emanuel"}, query: "Bach, J. S.", wantName: "Bach, Johann Sebastian", wantComposers: 2},
		{name: "spelling variant", existing: []string{"Rachmaninoff, Sergei"}, query: "Rachmaninov", wantName: "Rachmaninoff, Sergei", wantComposers: 1},
		{name: "multi word last name", existing: []string{"Vaughan Williams, Ralph"}, query: "Vaughan Williams", wantName: "Vaughan Williams, Ralph", wantComposers: 1},
		{name: "case insensitive", existing: []string{"VIVALDI, Antonio"}, query: "vivaldi", wantName: "VIVALDI, Antonio", wantComposers: 1},
		{name: "exact with diacritics", existing: []string{"Dvořák, Antonín"}, query: "dvořák, antonín", wantName: "Dvořák, Antonín", wantComposers: 1},
		{name: "folded diacritics", existing: []string{"Dvořák, Antonín"}, query: "Dvorak", wantName: "Dvořák, Antonín", wantComposers: 1},
		{name: "given name first", existing: []string{"Vivaldi, Antonio"}, query: "Antonio Vivaldi", wantName: "Vivaldi, Antonio", wantComposers: 1},
		{name: "new composer is reordered", query: "Antonio Vivaldi", wantName: "Vivaldi, Antonio", wantCreated: true, wantComposers: 1},
		{name: "unrelated composer is created", existing: []string{"Mozart, Wolfgang Amadeus"}, query: "Arvo Pärt", wantName: "Pärt, Arvo", wantCreated: true, wantComposers: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := memory.NewCatalog()
			seedComposers(t, catalog, tt.existing...)
			resolver := newTestResolver(catalog)

			result, err := resolver.ResolveRow(context.Background(), models.ImportRow{Title: "Test Piece", Composer: tt.query}, models.RowResolutions{})
			require.NoError(t, err)

			assert.Equal(t, tt.wantName, result.Composer.Name)
			assert.Equal(t, tt.wantCreated, result.ComposerCreated)
			assert.Len(t, composerNames(t, catalog), tt.wantComposers)
			assert.True(t, result.PieceCreated)
			assert.Equal(t, DefaultVoicing, result.Piece.Voicing)
		})
	}
}

func TestResolveRow_AmbiguousComposer(t *testing.T) {
	catalog := memory.NewCatalog()
	bachs := seedComposers(t, catalog, "Bach, Johann Sebastian", "Bach, Carl Philipp Emanuel")
	resolver := newTestResolver(catalog)
	row := models.ImportRow{Title: "Test Piece", Composer: "Bach"}

	_, err := resolver.ResolveRow(context.Background(), row, models.RowResolutions{})

	var ambiguity *AmbiguityError
	require.True(t, errors.As(err, &ambiguity))
	assert.Equal(t, "composer", ambiguity.Field)
	assert.Equal(t, "Bach", ambiguity.Query)
	assert.Len(t, ambiguity.Options, 2)
	assert.Len(t, composerNames(t, catalog), 2)

	pieces, err := catalog.Pieces().ListByTitlePrefix(context.Background(), "test", 0)
	require.NoError(t, err)
	assert.Empty(t, pieces)

	t.Run("resolved by choosing an existing composer", func(t *testing.T) {
		result, err := resolver.ResolveRow(context.Background(), row, models.RowResolutions{Composer: models.UseExisting(bachs[0].ID)})
		require.NoError(t, err)
		assert.Equal(t, bachs[0].ID, result.Composer.ID)
		assert.False(t, result.ComposerCreated)
	})
}

func TestResolveRow_ComposerOverrides(t *testing.T) {
	catalog := memory.NewCatalog()
	seedComposers(t, catalog, "Smith, John")
	resolver := newTestResolver(catalog)

	t.Run("force create", func(t *testing.T) {
		result, err := resolver.ResolveRow(context.Background(), models.ImportRow{Title: "Test Piece", Composer: "Smith, Jane"}, models.RowResolutions{Composer: models.ForceCreate()})
		require.NoError(t, err)
		assert.True(t, result.ComposerCreated)
		assert.ElementsMatch(t, []string{"Smith, John", "Smith, Jane"}, composerNames(t, catalog))
	})

	t.Run("missing override target", func(t *testing.T) {
		_, err := resolver.ResolveRow(context.Background(), models.ImportRow{Title: "Test Piece", Composer: "Smith"}, models.RowResolutions{Composer: models.UseExisting("missing-id")})
		var notFound *NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "composer missing-id not found", notFound.Error())
	})
}

func TestResolveRow_Idempotent(t *testing.T) {
	catalog := memory.NewCatalog()
	seedComposers(t, catalog, "Rutter, John")
	resolver := newTestResolver(catalog)
	row := models.ImportRow{Title: "For the Beauty of the Earth", Composer: "Rutter", Category: "Hymns"}

	first, err := resolver.ResolveRow(context.Background(), row, models.RowResolutions{})
	require.NoError(t, err)
	second, err := resolver.ResolveRow(context.Background(), row, models.RowResolutions{})
	require.NoError(t, err)

	assert.True(t, first.PieceCreated)
	assert.True(t, first.CategoryCreated)
	assert.False(t, second.PieceCreated)
	assert.False(t, second.CategoryCreated)
	assert.Equal(t, first.Piece.ID, second.Piece.ID)
	assert.Equal(t, first.Category.ID, second.Category.ID)
	assert.Len(t, composerNames(t, catalog), 1)
}

func TestResolveRow_PieceMatching(t *testing.T) {
	t.Run("partial title", func(t *testing.T) {
		catalog := memory.NewCatalog()
		handel := seedComposers(t, catalog, "Handel, George Frideric")[0]
		existing := seedPiece(t, catalog, "Hallelujah Chorus", handel)

		result, err := newTestResolver(catalog).ResolveRow(context.Background(), models.ImportRow{Title: "Hallelujah", Composer: "Handel"}, models.RowResolutions{})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, result.Piece.ID)
		assert.False(t, result.PieceCreated)
	})

	t.Run("same title by another composer", func(t *testing.T) {
		catalog := memory.NewCatalog()
		composers := seedComposers(t, catalog, "Composer A", "Composer B")
		gloriaA := seedPiece(t, catalog, "Gloria", composers[0])
		seedPiece(t, catalog, "Gloria", composers[1])

		result, err := newTestResolver(catalog).ResolveRow(context.Background(), models.ImportRow{Title: "Gloria", Composer: "Composer A"}, models.RowResolutions{})
		require.NoError(t, err)
		assert.Equal(t, gloriaA.ID, result.Piece.ID)
	})

	t.Run("ambiguous titles carry composer names", func(t *testing.T) {
		catalog := memory.NewCatalog()
		mozart := seedComposers(t, catalog, "Mozart, Wolfgang Amadeus")[0]
		requiem := seedPiece(t, catalog, "Requiem in D minor", mozart)
		seedPiece(t, catalog, "Requiem Mass", mozart)
		resolver := newTestResolver(catalog)
		row := models.ImportRow{Title: "Requiem", Composer: "Mozart"}

		_, err := resolver.ResolveRow(context.Background(), row, models.RowResolutions{})
		var ambiguity *AmbiguityError
		require.True(t, errors.As(err, &ambiguity))
		assert.Equal(t, "piece", ambiguity.Field)
		assert.ElementsMatch(t, []string{
			"Requiem in D minor (Mozart, Wolfgang Amadeus)",
			"Requiem Mass (Mozart, Wolfgang Amadeus)",
		}, []string{ambiguity.Options[0].Name, ambiguity.Options[1].Name})

		result, err := resolver.ResolveRow(context.Background(), row, models.RowResolutions{Piece: models.UseExisting(requiem.ID)})
		require.NoError(t, err)
		assert.Equal(t, requiem.ID, result.Piece.ID)
	})

	t.Run("force create piece", func(t *testing.T) {
		catalog := memory.NewCatalog()
		brahms := seedComposers(t, catalog, "Brahms, Johannes")[0]
		seedPiece(t, catalog, "German Requiem", brahms)

		result, err := newTestResolver(catalog).ResolveRow(context.Background(), models.ImportRow{Title: "Requiem", Composer: "Brahms"}, models.RowResolutions{Piece: models.ForceCreate()})
		require.NoError(t, err)
		assert.True(t, result.PieceCreated)
		assert.Equal(t, "Requiem", result.Piece.Title)

		pieces, err := catalog.Pieces().ListByComposer(context.Background(), brahms.ID)
		require.NoError(t, err)
		assert.Len(t, pieces, 2)
	})
}

func TestResolveRow_AuthorAndFields(t *testing.T) {
	catalog := memory.NewCatalog()
	watts, err := catalog.Authors().Create(context.Background(), "Watts, Isaac")
	require.NoError(t, err)
	resolver := newTestResolver(catalog)

	result, err := resolver.ResolveRow(context.Background(), models.ImportRow{
		Title:        "  O God, Our Help in Ages Past ",
		Composer:     "William Croft",
		Author:       "Isaac Watts",
		Category:     "Hymns",
		Voicing:      "SAB",
		Key:          "C",
		LyricsSource: "Psalm 90",
	}, models.RowResolutions{})
	require.NoError(t, err)

	assert.Equal(t, watts.ID, result.Author.ID)
	assert.False(t, result.AuthorCreated)
	assert.Equal(t, "Croft, William", result.Composer.Name)
	assert.Equal(t, "O God, Our Help in Ages Past", result.Piece.Title)
	assert.Equal(t, "SAB", result.Piece.Voicing)
	assert.Equal(t, "C", result.Piece.Key)
	assert.Equal(t, "Psalm 90", result.Piece.LyricsSource)
	assert.Equal(t, watts.ID, *result.Piece.AuthorID)
	assert.Equal(t, result.Category.ID, *result.Piece.CategoryID)
}

func TestResolveRow_MissingRequiredData(t *testing.T) {
	catalog := memory.NewCatalog()
	resolver := newTestResolver(catalog)

	_, err := resolver.ResolveRow(context.Background(), models.ImportRow{Title: "Test Piece", Composer: "  "}, models.RowResolutions{})

	assert.EqualError(t, err, "missing required data: composer")
	assert.Empty(t, composerNames(t, catalog))
}

func TestResolveRow_AbbreviationPicksAmongNamesakes(t *testing.T) {
	catalog := memory.NewCatalog()
	bachs := seedComposers(t, catalog, "Bach, Carl Philipp Emanuel", "Bach, Johann Sebastian")

	result, err := newTestResolver(catalog).ResolveRow(context.Background(), models.ImportRow{Title: "Test Piece", Composer: "J. S. Bach"}, models.RowResolutions{})

	require.NoError(t, err)
	assert.Equal(t, bachs[1].ID, result.Composer.ID)
}
