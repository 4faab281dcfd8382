package ingest

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/medguideai/medguide/errors"
)

// InMemoryStore is a Store for tests and throwaway sessions.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Chunk
}

var (
	_ Store = (*InMemoryStore)(nil)
)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		collections: make(map[string]map[string]*Chunk),
	}
}

func (s *InMemoryStore) Upsert(ctx context.Context, collection string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return errors.Errorf("chunk %s has no embedding", chunk.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*Chunk)
		s.collections[collection] = coll
	}
	for _, chunk := range chunks {
		c := *chunk
		coll[chunk.ID] = &c
	}

	return nil
}

func (s *InMemoryStore) Query(ctx context.Context, collection string, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	if len(coll) == 0 || len(queryEmbedding) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(coll))
	for _, chunk := range coll {
		if len(chunk.Embedding) != len(queryEmbedding) {
			continue
		}
		results = append(results, SearchResult{
			Chunk: chunk,
			Score: cosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *InMemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collections := make([]string, 0, len(s.collections))
	for name, coll := range s.collections {
		if len(coll) == 0 {
			continue
		}
		collections = append(collections, name)
	}
	sort.Strings(collections)
	return collections, nil
}

func (s *InMemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
