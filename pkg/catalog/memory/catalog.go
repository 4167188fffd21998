// Package memory is an in-process catalog used by tests and the memory backend.
// Writes made inside InTx are undone when the transaction body fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/google/uuid"
)

type Catalog struct {
	mu          sync.RWMutex
	composers   map[string]models.Creator
	authors     map[string]models.Creator
	categories  map[string]models.Category
	pieces      map[string]models.Piece
	collections map[string]models.Collection
	links       map[string][]models.CollectionPiece
}

func NewCatalog() *Catalog {
	return &Catalog{
		composers:   make(map[string]models.Creator),
		authors:     make(map[string]models.Creator),
		categories:  make(map[string]models.Category),
		pieces:      make(map[string]models.Piece),
		collections: make(map[string]models.Collection),
		links:       make(map[string][]models.CollectionPiece),
	}
}

type journalKey struct{}

// journal collects undo steps for the writes of one transaction
type journal struct {
	undo []func()
}

// InTx runs fn and reverts its writes if it returns an error or panics.
// A transaction already open on ctx is joined.
func (c *Catalog) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	defer func() {
		if p := recover(); p != nil {
			c.rollback(j)
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		c.rollback(j)
	}
	return err
}

func (c *Catalog) rollback(j *journal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
}

// record registers an undo step; the caller holds c.mu
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

func (c *Catalog) Composers() *CreatorStore {
	return &CreatorStore{catalog: c, kind: models.CreatorKindComposer}
}

func (c *Catalog) Authors() *CreatorStore {
	return &CreatorStore{catalog: c, kind: models.CreatorKindAuthor}
}

func (c *Catalog) Categories() *CategoryStore {
	return &CategoryStore{catalog: c}
}

func (c *Catalog) Pieces() *PieceStore {
	return &PieceStore{catalog: c}
}

func (c *Catalog) Collections() *CollectionStore {
	return &CollectionStore{catalog: c}
}

// CreatorStore serves composers or authors
type CreatorStore struct {
	catalog *Catalog
	kind    models.CreatorKind
}

func (s *CreatorStore) table() map[string]models.Creator {
	if s.kind == models.CreatorKindAuthor {
		return s.catalog.authors
	}
	return s.catalog.composers
}

func (s *CreatorStore) sorted() []models.Creator {
	creators := make([]models.Creator, 0, len(s.table()))
	for _, creator := range s.table() {
		creators = append(creators, creator)
	}
	sort.Slice(creators, func(i, j int) bool {
		if creators[i].Name == creators[j].Name {
			return creators[i].ID < creators[j].ID
		}
		return creators[i].Name < creators[j].Name
	})
	return creators
}

func (s *CreatorStore) GetByID(ctx context.Context, id string) (*models.Creator, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	creator, ok := s.table()[id]
	if !ok {
		return nil, nil
	}
	return &creator, nil
}

func (s *CreatorStore) FindByName(ctx context.Context, name string) (*models.Creator, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	for _, creator := range s.sorted() {
		if strings.EqualFold(creator.Name, name) {
			return &creator, nil
		}
	}
	return nil, nil
}

func (s *CreatorStore) ListByNamePrefix(ctx context.Context, prefix string, limit int) ([]models.Creator, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	result := []models.Creator{}
	for _, creator := range s.sorted() {
		if limit > 0 && len(result) >= limit {
			break
		}
		if strings.HasPrefix(strings.ToLower(creator.Name), prefix) {
			result = append(result, creator)
		}
	}
	return result, nil
}

func (s *CreatorStore) List(ctx context.Context, limit int) ([]models.Creator, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	creators := s.sorted()
	if limit > 0 && len(creators) > limit {
		creators = creators[:limit]
	}
	return creators, nil
}

func (s *CreatorStore) Create(ctx context.Context, name string) (*models.Creator, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%s name is required", s.kind)
	}

	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	creator := models.Creator{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	table := s.table()
	table[creator.ID] = creator
	record(ctx, func() { delete(table, creator.ID) })
	return &creator, nil
}

type CategoryStore struct {
	catalog *Catalog
}

func (s *CategoryStore) FindOrCreate(ctx context.Context, name string) (*models.Category, bool, error) {
	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	for _, category := range s.catalog.categories {
		if strings.EqualFold(category.Name, name) {
			return &category, false, nil
		}
	}

	category := models.Category{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	s.catalog.categories[category.ID] = category
	record(ctx, func() { delete(s.catalog.categories, category.ID) })
	return &category, true, nil
}

type PieceStore struct {
	catalog *Catalog
}

// withComposer fills ComposerName; the caller holds the read lock
func (s *PieceStore) withComposer(piece models.Piece) models.Piece {
	if piece.ComposerID != nil {
		if composer, ok := s.catalog.composers[*piece.ComposerID]; ok {
			name := composer.Name
			piece.ComposerName = &name
		}
	}
	return piece
}

func (s *PieceStore) sorted(keep func(models.Piece) bool) []models.Piece {
	pieces := []models.Piece{}
	for _, piece := range s.catalog.pieces {
		if keep(piece) {
			pieces = append(pieces, s.withComposer(piece))
		}
	}
	sort.Slice(pieces, func(i, j int) bool {
		if pieces[i].CreatedAt.Equal(pieces[j].CreatedAt) {
			return pieces[i].ID < pieces[j].ID
		}
		return pieces[i].CreatedAt.Before(pieces[j].CreatedAt)
	})
	return pieces
}

func (s *PieceStore) GetByID(ctx context.Context, id string) (*models.Piece, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	piece, ok := s.catalog.pieces[id]
	if !ok {
		return nil, nil
	}
	piece = s.withComposer(piece)
	return &piece, nil
}

func (s *PieceStore) ListByComposer(ctx context.Context, composerID string) ([]models.Piece, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	return s.sorted(func(p models.Piece) bool {
		return p.ComposerID != nil && *p.ComposerID == composerID
	}), nil
}

func (s *PieceStore) ListByTitlePrefix(ctx context.Context, prefix string, limit int) ([]models.Piece, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	pieces := s.sorted(func(p models.Piece) bool {
		return strings.HasPrefix(strings.ToLower(p.Title), prefix)
	})
	if limit > 0 && len(pieces) > limit {
		pieces = pieces[:limit]
	}
	return pieces, nil
}

func (s *PieceStore) Create(ctx context.Context, piece models.Piece) (*models.Piece, error) {
	if strings.TrimSpace(piece.Title) == "" {
		return nil, fmt.Errorf("piece title is required")
	}

	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	piece.ID = uuid.New().String()
	piece.CreatedAt = time.Now().UTC()
	piece.ComposerName = nil
	s.catalog.pieces[piece.ID] = piece
	record(ctx, func() { delete(s.catalog.pieces, piece.ID) })

	created := s.withComposer(piece)
	return &created, nil
}

type CollectionStore struct {
	catalog *Catalog
}

// Create adds a collection; the import API only links into existing collections
func (s *CollectionStore) Create(ctx context.Context, title, prefix string) (*models.Collection, error) {
	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	collection := models.Collection{ID: uuid.New().String(), Title: title, Prefix: prefix, CreatedAt: time.Now().UTC()}
	s.catalog.collections[collection.ID] = collection
	record(ctx, func() { delete(s.catalog.collections, collection.ID) })
	return &collection, nil
}

func (s *CollectionStore) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	collection, ok := s.catalog.collections[id]
	if !ok {
		return nil, nil
	}
	return &collection, nil
}

// MaxSequence returns the highest integer number in the collection, 0 when none
func (s *CollectionStore) MaxSequence(ctx context.Context, collectionID string) (int, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	highest := 0
	for _, link := range s.catalog.links[collectionID] {
		if n, ok := models.SequenceNumber(link.Number).Int(); ok && n > highest {
			highest = n
		}
	}
	return highest, nil
}

// LinkPiece adds the piece to the collection, replacing the number of an existing link
func (s *CollectionStore) LinkPiece(ctx context.Context, link models.CollectionPiece) error {
	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	if _, ok := s.catalog.collections[link.CollectionID]; !ok {
		return fmt.Errorf("collection %s not found", link.CollectionID)
	}

	links := s.catalog.links[link.CollectionID]
	previous := append([]models.CollectionPiece(nil), links...)
	replaced := false
	for i := range links {
		if links[i].PieceID == link.PieceID {
			links[i].Number = link.Number
			replaced = true
		}
	}
	if !replaced {
		links = append(links, link)
	}
	s.catalog.links[link.CollectionID] = links
	record(ctx, func() { s.catalog.links[link.CollectionID] = previous })
	return nil
}

// Links returns the collection's links in insertion order
func (s *CollectionStore) Links(ctx context.Context, collectionID string) ([]models.CollectionPiece, error) {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()

	return append([]models.CollectionPiece{}, s.catalog.links[collectionID]...), nil
}
