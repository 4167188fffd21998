package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_InTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog()
	collection, err := catalog.Collections().Create(ctx, "Hymnal", "H")
	require.NoError(t, err)

	err = catalog.InTx(ctx, func(ctx context.Context) error {
		composer, err := catalog.Composers().Create(ctx, "Rutter, John")
		require.NoError(t, err)
		piece, err := catalog.Pieces().Create(ctx, models.Piece{Title: "Gloria", ComposerID: &composer.ID})
		require.NoError(t, err)
		require.NoError(t, catalog.Collections().LinkPiece(ctx, models.CollectionPiece{CollectionID: collection.ID, PieceID: piece.ID, Number: "1"}))
		return errors.New("row failed")
	})
	require.Error(t, err)

	composers, err := catalog.Composers().List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, composers)
	links, err := catalog.Collections().Links(ctx, collection.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCatalog_InTxKeepsWritesOnSuccess(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog()

	err := catalog.InTx(ctx, func(ctx context.Context) error {
		_, err := catalog.Authors().Create(ctx, "Watts, Isaac")
		return err
	})
	require.NoError(t, err)

	author, err := catalog.Authors().FindByName(ctx, "WATTS, isaac")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Watts, Isaac", author.Name)

	composer, err := catalog.Composers().FindByName(ctx, "Watts, Isaac")
	require.NoError(t, err)
	assert.Nil(t, composer)
}

func TestCreatorStore_ListByNamePrefix(t *testing.T) {
	ctx := context.Background()
	store := NewCatalog().Composers()
	for _, name := range []string{"Bach, Johann Sebastian", "Bach, Carl Philipp Emanuel", "Brahms, Johannes"} {
		_, err := store.Create(ctx, name)
		require.NoError(t, err)
	}

	bachs, err := store.ListByNamePrefix(ctx, "bach", 0)
	require.NoError(t, err)
	assert.Len(t, bachs, 2)

	limited, err := store.ListByNamePrefix(ctx, "b", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPieceStore_FillsComposerName(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog()
	composer, err := catalog.Composers().Create(ctx, "Handel, George Frideric")
	require.NoError(t, err)
	_, err = catalog.Pieces().Create(ctx, models.Piece{Title: "Hallelujah Chorus", ComposerID: &composer.ID})
	require.NoError(t, err)

	pieces, err := catalog.Pieces().ListByComposer(ctx, composer.ID)
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, "Hallelujah Chorus (Handel, George Frideric)", pieces[0].DisplayName())

	byPrefix, err := catalog.Pieces().ListByTitlePrefix(ctx, "hall", 10)
	require.NoError(t, err)
	assert.Len(t, byPrefix, 1)
}

func TestCollectionStore_MaxSequenceAndRelink(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog()
	collection, err := catalog.Collections().Create(ctx, "Folder", "")
	require.NoError(t, err)

	highest, err := catalog.Collections().MaxSequence(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, highest)

	for _, link := range []models.CollectionPiece{
		{CollectionID: collection.ID, PieceID: "p1", Number: "7"},
		{CollectionID: collection.ID, PieceID: "p2", Number: "12a"},
		{CollectionID: collection.ID, PieceID: "p1", Number: "9"},
	} {
		require.NoError(t, catalog.Collections().LinkPiece(ctx, link))
	}

	highest, err = catalog.Collections().MaxSequence(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, highest)

	links, err := catalog.Collections().Links(ctx, collection.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	assert.Error(t, catalog.Collections().LinkPiece(ctx, models.CollectionPiece{CollectionID: "missing", PieceID: "p1", Number: "1"}))
}
