package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/rpggio/aerial/internal/repository"
)

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu   sync.Mutex
	docs map[string]map[string]Document
	seq  int64
	// order keeps creation order stable when timestamps collide.
	order map[string]int64

	failList error
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:  make(map[string]map[string]Document),
		order: make(map[string]int64),
	}
}

// Upsert stores a copy of the document, keeping the original creation time.
func (m *MemoryRepository) Upsert(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.docs[doc.Path]
	if !ok {
		coll = make(map[string]Document)
		m.docs[doc.Path] = coll
	}
	key := doc.Path + "\x00" + doc.ID
	if existing, ok := coll[doc.ID]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		m.seq++
		m.order[key] = m.seq
	}
	coll[doc.ID] = doc.Clone()
	return nil
}

// Get returns a copy of a document.
func (m *MemoryRepository) Get(_ context.Context, path, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := doc.Clone()
	return &out, nil
}

// List returns copies of a collection's documents in creation order.
func (m *MemoryRepository) List(_ context.Context, path string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failList != nil {
		return nil, m.failList
	}
	coll := m.docs[path]
	out := make([]Document, 0, len(coll))
	for _, doc := range coll {
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return m.order[path+"\x00"+out[i].ID] < m.order[path+"\x00"+out[j].ID]
	})
	return out, nil
}

// Delete removes a document.
func (m *MemoryRepository) Delete(_ context.Context, path, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.docs[path]
	if _, ok := coll[id]; !ok {
		return repository.ErrNotFound
	}
	delete(coll, id)
	delete(m.order, path+"\x00"+id)
	return nil
}

// SetFailList makes List fail with err until called again with nil.
func (m *MemoryRepository) SetFailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failList = err
}
