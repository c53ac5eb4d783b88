package catalog

import (
	"context"
	"sync"
)

// VectorStore persists ToolRecords by ID and answers nearest-neighbor queries.
//
// NearestNeighbors returns at most topK neighbors ordered best-first. Scores are
// similarities where higher is closer; a distance backend converts before returning.
type VectorStore interface {
	Upsert(ctx context.Context, record ToolRecord) error
	NearestNeighbors(ctx context.Context, vector []float32, topK int) ([]Neighbor, error)
	Get(ctx context.Context, id string) (ToolRecord, bool, error)
	All(ctx context.Context) ([]ToolRecord, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is an in-process VectorStore using brute-force cosine similarity.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]ToolRecord
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]ToolRecord)}
}

// Upsert stores record, replacing any record with the same ID.
func (m *MemoryStore) Upsert(ctx context.Context, record ToolRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.ID]; !exists {
		m.order = append(m.order, record.ID)
	}
	m.records[record.ID] = record
	return nil
}

// NearestNeighbors scores every record against vector. A record of another
// dimension fails the whole query.
func (m *MemoryStore) NearestNeighbors(ctx context.Context, vector []float32, topK int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	neighbors := make([]Neighbor, 0, len(m.order))
	for _, id := range m.order {
		stored := m.records[id].Embedding
		if err := CheckDimension(id, vector, stored); err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{
			ID:    id,
			Score: CosineSimilarity(vector, stored),
		})
	}
	m.mu.RUnlock()

	return RankNeighbors(neighbors, topK), nil
}

// Get returns the record with id.
func (m *MemoryStore) Get(_ context.Context, id string) (ToolRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	return record, ok, nil
}

// All returns every record in insertion order.
func (m *MemoryStore) All(_ context.Context) ([]ToolRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ToolRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out, nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

var _ VectorStore = (*MemoryStore)(nil)
