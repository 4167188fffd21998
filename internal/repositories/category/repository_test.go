package category

import (
	"context"
	"testing"

	"github.com/Ramsey-B/reed/internal/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_FindOrCreate(t *testing.T) {
	repo := NewRepository(repotest.Open(t), repotest.Logger())
	ctx := context.Background()

	created, wasCreated, err := repo.FindOrCreate(ctx, "Psalm 90")
	require.NoError(t, err)
	assert.True(t, wasCreated)

	found, wasCreated, err := repo.FindOrCreate(ctx, "psalm 90")
	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Psalm 90", found.Name)
}
