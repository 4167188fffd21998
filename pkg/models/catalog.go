package models

import "time"

// CreatorKind distinguishes the two person catalogs
type CreatorKind string

const (
	CreatorKindComposer CreatorKind = "composer"
	CreatorKindAuthor   CreatorKind = "author"
)

// Creator is a composer or an author. Name is stored in "Last, First" form.
type Creator struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Category is an entry of the curated category vocabulary
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Piece is a catalog piece. ComposerName is filled by reads that join the composer.
type Piece struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	ComposerID   *string   `json:"composerId,omitempty" db:"composer_id"`
	AuthorID     *string   `json:"authorId,omitempty" db:"author_id"`
	CategoryID   *string   `json:"categoryId,omitempty" db:"category_id"`
	Voicing      string    `json:"voicing,omitempty" db:"voicing"`
	Key          string    `json:"key,omitempty" db:"musical_key"`
	LyricsSource string    `json:"lyricsSource,omitempty" db:"lyrics_source"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	ComposerName *string   `json:"composerName,omitempty" db:"composer_name"`
}

// DisplayName labels a piece with its composer so identical titles can be told apart
func (p Piece) DisplayName() string {
	if p.ComposerName == nil || *p.ComposerName == "" {
		return p.Title
	}
	return p.Title + " (" + *p.ComposerName + ")"
}

// Collection is an ordered set of pieces, such as a hymnal or a choir folder
type Collection struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Prefix    string    `json:"prefix,omitempty" db:"prefix"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CollectionPiece links a piece into a collection under its number
type CollectionPiece struct {
	CollectionID string `json:"collectionId" db:"collection_id"`
	PieceID      string `json:"pieceId" db:"piece_id"`
	Number       string `json:"number" db:"number_in_collection"`
}
