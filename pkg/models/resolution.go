package models

import (
	"fmt"
	"strconv"
)

// ResolutionKind tags the variant held by a Resolution
type ResolutionKind int

const (
	ResolutionAutomatic ResolutionKind = iota
	ResolutionUseExisting
	ResolutionForceCreate
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionUseExisting:
		return "use_existing"
	case ResolutionForceCreate:
		return "force_create"
	default:
		return "automatic"
	}
}

// Resolution is a human instruction for how one field of one row is resolved.
// The zero value is Automatic.
type Resolution struct {
	Kind     ResolutionKind
	EntityID string
}

// Automatic runs the matching pipeline
func Automatic() Resolution {
	return Resolution{Kind: ResolutionAutomatic}
}

// UseExisting pins the field to an existing entity. The id is trusted and only checked for existence.
func UseExisting(id string) Resolution {
	return Resolution{Kind: ResolutionUseExisting, EntityID: id}
}

// ForceCreate bypasses matching and creates a new entity
func ForceCreate() Resolution {
	return Resolution{Kind: ResolutionForceCreate}
}

// RowResolutions holds the per-field resolutions of one row
type RowResolutions struct {
	Composer Resolution
	Author   Resolution
	Piece    Resolution
}

// ResolutionInput is the wire shape of a row resolution
type ResolutionInput struct {
	ComposerID        string `json:"composerId,omitempty"`
	CreateNewComposer bool   `json:"createNewComposer,omitempty"`
	AuthorID          string `json:"authorId,omitempty"`
	CreateNewAuthor   bool   `json:"createNewAuthor,omitempty"`
	PieceID           string `json:"pieceId,omitempty"`
	CreateNewPiece    bool   `json:"createNewPiece,omitempty"`
}

// ToRowResolutions converts the wire shape into tagged resolutions. Asking for an
// existing entity and a new one for the same field is rejected.
func (in ResolutionInput) ToRowResolutions() (RowResolutions, error) {
	composer, err := toResolution("composer", in.ComposerID, in.CreateNewComposer)
	if err != nil {
		return RowResolutions{}, err
	}
	author, err := toResolution("author", in.AuthorID, in.CreateNewAuthor)
	if err != nil {
		return RowResolutions{}, err
	}
	piece, err := toResolution("piece", in.PieceID, in.CreateNewPiece)
	if err != nil {
		return RowResolutions{}, err
	}
	return RowResolutions{Composer: composer, Author: author, Piece: piece}, nil
}

func toResolution(field, id string, createNew bool) (Resolution, error) {
	switch {
	case id != "" && createNew:
		return Resolution{}, fmt.Errorf("%s resolution cannot both select an existing entity and create a new one", field)
	case id != "":
		return UseExisting(id), nil
	case createNew:
		return ForceCreate(), nil
	default:
		return Automatic(), nil
	}
}

// ParseResolutions converts resolutions keyed by 0-based row index into tagged
// resolutions, validating keys against the row count.
func ParseResolutions(inputs map[string]ResolutionInput, rowCount int) (map[int]RowResolutions, error) {
	result := make(map[int]RowResolutions, len(inputs))
	for key, input := range inputs {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("resolution key %q is not a row index", key)
		}
		if index < 0 || index >= rowCount {
			return nil, fmt.Errorf("resolution key %d is outside the %d submitted rows", index, rowCount)
		}
		resolutions, err := input.ToRowResolutions()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", index, err)
		}
		result[index] = resolutions
	}
	return result, nil
}
