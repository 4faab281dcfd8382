package ingest

import (
	"context"
)

// Store is the vector storage behind ingestion and document search.
type Store interface {
	// Upsert stores chunks into a named collection atomically: either every
	// chunk lands or none do. Chunks with IDs already present in the
	// collection are overwritten, not duplicated.
	Upsert(ctx context.Context, collection string, chunks []*Chunk) error

	// Query returns up to limit chunks of the collection ordered by
	// decreasing similarity to the query embedding.
	Query(ctx context.Context, collection string, queryEmbedding []float32, limit int) ([]SearchResult, error)

	ListCollections(ctx context.Context) ([]string, error)

	DeleteCollection(ctx context.Context, collection string) error

	Close() error
}
