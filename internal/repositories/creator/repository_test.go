package creator

import (
	"context"
	"testing"

	"github.com/Ramsey-B/reed/internal/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	db := repotest.Open(t)
	repo := NewComposerRepository(db, repotest.Logger())
	ctx := context.Background()

	bach, err := repo.Create(ctx, "Bach, Johann Sebastian")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Bach, Carl Philipp Emanuel")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Rutter, John")
	require.NoError(t, err)

	t.Run("get by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, bach.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Bach, Johann Sebastian", found.Name)

		missing, err := repo.GetByID(ctx, "not-a-uuid")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("find by name ignores case", func(t *testing.T) {
		found, err := repo.FindByName(ctx, "rutter, JOHN")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Rutter, John", found.Name)

		missing, err := repo.FindByName(ctx, "Rutter")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("prefix", func(t *testing.T) {
		creators, err := repo.ListByNamePrefix(ctx, "BACH", 10)
		require.NoError(t, err)
		require.Len(t, creators, 2)
		assert.Equal(t, "Bach, Carl Philipp Emanuel", creators[0].Name)
	})

	t.Run("list with limit", func(t *testing.T) {
		creators, err := repo.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, creators, 2)

		all, err := repo.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("authors are separate", func(t *testing.T) {
		authors, err := NewAuthorRepository(db, repotest.Logger()).List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, authors)
	})
}
