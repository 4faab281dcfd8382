package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medguideai/medguide/errors"
	"gonum.org/v1/gonum/mat"
)

type (
	// Store persists memories keyed by their stable key. Set replaces any
	// existing memory under the same key.
	Store interface {
		Set(ctx context.Context, memory *Memory) error
		Get(ctx context.Context, key string) (*Memory, error)
		Search(ctx context.Context, queryEmbedding []float32, limit uint) ([]ScoredMemory, error)
		List(ctx context.Context) ([]*Memory, error)
		Delete(ctx context.Context, key string) error
		Close() error
	}

	InMemoryStore struct {
		mu       sync.RWMutex
		memories map[string]*Memory
	}
)

var (
	_ Store = (*InMemoryStore)(nil)
)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memories: make(map[string]*Memory),
	}
}

func (s *InMemoryStore) Set(ctx context.Context, memory *Memory) error {
	if memory.Key == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "memory key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := *memory
	m.UpdatedAt = time.Now()
	s.memories[m.Key] = &m
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memory, exists := s.memories[key]
	if !exists {
		return nil, errors.Wrapf(errors.ErrNotFound, "memory with key '%s' not found", key)
	}
	return memory, nil
}

func (s *InMemoryStore) Search(ctx context.Context, queryEmbedding []float32, limit uint) ([]ScoredMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryEmbedding) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding is empty")
	}

	candidates := make([]*Memory, 0, len(s.memories))
	for _, memory := range s.memories {
		candidates = append(candidates, memory)
	}

	return rankBySimilarity(candidates, queryEmbedding, limit), nil
}

// rankBySimilarity scores candidates against the query embedding and returns
// them best-first. Candidates with a mismatched embedding dimension are
// skipped.
func rankBySimilarity(memories []*Memory, queryEmbedding []float32, limit uint) []ScoredMemory {
	var candidates []*Memory
	for _, memory := range memories {
		if len(memory.Embedding) == len(queryEmbedding) {
			candidates = append(candidates, memory)
		}
	}
	if len(candidates) == 0 {
		return []ScoredMemory{}
	}

	dim := len(queryEmbedding)
	queryVec := make([]float64, dim)
	for i, v := range queryEmbedding {
		queryVec[i] = float64(v)
	}

	// Stack all candidate embeddings into an N x d matrix so one MulVec
	// yields every inner product at once.
	data := make([]float64, len(candidates)*dim)
	for i, memory := range candidates {
		for j, v := range memory.Embedding {
			data[i*dim+j] = float64(v)
		}
	}

	var scores mat.VecDense
	scores.MulVec(mat.NewDense(len(candidates), dim, data), mat.NewVecDense(dim, queryVec))

	// Embeddings are unit-normalized, so the inner product lands in [-1, 1];
	// shift it into [0, 1] for clients.
	scored := make([]ScoredMemory, 0, len(candidates))
	for i, memory := range candidates {
		scored = append(scored, ScoredMemory{
			Memory: memory,
			Score:  (scores.AtVec(i) + 1.0) * 0.5,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && uint(len(scored)) > limit {
		scored = scored[:limit]
	}

	return scored
}

func (s *InMemoryStore) List(ctx context.Context) ([]*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Memory, 0, len(s.memories))
	for _, memory := range s.memories {
		results = append(results, memory)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})

	return results, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, key)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
