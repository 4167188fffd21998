package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionInput_ToRowResolutions(t *testing.T) {
	t.Run("defaults to automatic", func(t *testing.T) {
		res, err := ResolutionInput{}.ToRowResolutions()
		require.NoError(t, err)
		assert.Equal(t, ResolutionAutomatic, res.Composer.Kind)
		assert.Equal(t, ResolutionAutomatic, res.Author.Kind)
		assert.Equal(t, ResolutionAutomatic, res.Piece.Kind)
	})

	t.Run("maps each field independently", func(t *testing.T) {
		res, err := ResolutionInput{ComposerID: "c1", CreateNewPiece: true}.ToRowResolutions()
		require.NoError(t, err)
		assert.Equal(t, UseExisting("c1"), res.Composer)
		assert.Equal(t, Automatic(), res.Author)
		assert.Equal(t, ForceCreate(), res.Piece)
	})

	t.Run("rejects contradictory field", func(t *testing.T) {
		_, err := ResolutionInput{AuthorID: "a1", CreateNewAuthor: true}.ToRowResolutions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "author")
	})
}

func TestParseResolutions(t *testing.T) {
	var inputs map[string]ResolutionInput
	require.NoError(t, json.Unmarshal([]byte(`{"0": {"composerId": "c1"}, "2": {"createNewComposer": true}}`), &inputs))

	parsed, err := ParseResolutions(inputs, 3)
	require.NoError(t, err)
	assert.Len(t, parsed, 2)
	assert.Equal(t, UseExisting("c1"), parsed[0].Composer)
	assert.Equal(t, ForceCreate(), parsed[2].Composer)

	_, err = ParseResolutions(map[string]ResolutionInput{"x": {}}, 3)
	assert.Error(t, err)

	_, err = ParseResolutions(map[string]ResolutionInput{"3": {}}, 3)
	assert.Error(t, err)
}

func TestResolutionKind_String(t *testing.T) {
	assert.Equal(t, "automatic", Resolution{}.Kind.String())
	assert.Equal(t, "use_existing", UseExisting("x").Kind.String())
	assert.Equal(t, "force_create", ForceCreate().Kind.String())
}
