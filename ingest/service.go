package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/errors"
	"github.com/mokiat/gog"
)

type (
	Service interface {
		// Ingest extracts text from an uploaded file, chunks it, embeds every
		// chunk and stores the whole set into a named vector collection. If
		// collection is empty the name is derived from the filename. No
		// partial chunk set is ever left behind on failure.
		Ingest(ctx context.Context, fileBytes []byte, filename string, collection string) (*Result, error)

		// Search embeds the query and returns the most similar chunks of the
		// collection.
		Search(ctx context.Context, collection string, query string, limit int) ([]SearchResult, error)

		ListCollections(ctx context.Context) ([]string, error)
		DeleteCollection(ctx context.Context, collection string) error
		Close() error
	}

	service struct {
		store    Store
		embedder Embedder
		chunker  *Chunker
		logger   *slog.Logger
	}
)

var (
	_ Service = (*service)(nil)
)

func NewService(conf *config.IngestConfig, logger *slog.Logger, embedder Embedder, dimension int) (Service, error) {
	if conf.SqlitePath == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "ingest sqlite path is not configured")
	}

	store, err := NewSqliteStore(conf.SqlitePath, dimension)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create sqlite vector store")
	}

	return NewServiceWithStore(conf, logger, embedder, store)
}

func NewServiceWithStore(conf *config.IngestConfig, logger *slog.Logger, embedder Embedder, store Store) (Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required - check OpenAI API key configuration")
	}

	chunker, err := NewChunker(conf.ChunkSize, conf.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return &service{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
	}, nil
}

func (s *service) Ingest(ctx context.Context, fileBytes []byte, filename string, collection string) (*Result, error) {
	extracted, err := extract(fileBytes, filename)
	if err != nil {
		return nil, err
	}

	if collection == "" {
		collection = CollectionNameFromFilename(filename)
	}
	documentId := CollectionNameFromFilename(filename)

	chunks := s.chunker.Chunk(documentId, extracted.Text)
	if len(chunks) == 0 {
		return nil, errors.Wrapf(errors.ErrExtraction, "document %s produced no chunks", filename)
	}

	now := time.Now()

	// Embed every chunk up front; nothing is written unless all succeed.
	embeddings, err := s.embedder.Embed(ctx, gog.Map(chunks, func(c *Chunk) string {
		return c.Text
	})...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed %d chunks", len(chunks))
	}
	if len(embeddings) != len(chunks) {
		return nil, errors.Wrapf(errors.ErrEmbedding, "embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
		chunks[i].Metadata = gog.Merge(extracted.Metadata, map[string]any{
			"filename":    filepath.Base(filename),
			"chunk_index": chunks[i].Index,
			"num_pages":   extracted.NumPages,
		})
	}

	s.logger.Info("Embedded document", "filename", filename, "chunks", len(chunks), "time", time.Since(now))

	if err := s.store.Upsert(ctx, collection, chunks); err != nil {
		return nil, errors.Wrapf(err, "failed to store chunks")
	}

	return &Result{
		Collection: collection,
		DocumentID: documentId,
		NumChunks:  len(chunks),
		NumPages:   extracted.NumPages,
	}, nil
}

func (s *service) Search(ctx context.Context, collection string, query string, limit int) ([]SearchResult, error) {
	embeddings, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed query")
	}
	if len(embeddings) == 0 {
		return nil, errors.Wrapf(errors.ErrEmbedding, "no embedding generated for query")
	}

	return s.store.Query(ctx, collection, embeddings[0], limit)
}

func (s *service) ListCollections(ctx context.Context) ([]string, error) {
	return s.store.ListCollections(ctx)
}

func (s *service) DeleteCollection(ctx context.Context, collection string) error {
	return s.store.DeleteCollection(ctx, collection)
}

func (s *service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func extract(fileBytes []byte, filename string) (*extractedDocument, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(fileBytes)
	case ".txt", ".md":
		text := strings.TrimSpace(string(fileBytes))
		if text == "" {
			return nil, errors.Wrapf(errors.ErrExtraction, "file %s is empty", filename)
		}
		return &extractedDocument{
			Text:     text,
			NumPages: 1,
			Metadata: map[string]any{},
		}, nil
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedFormat, "unsupported file extension %q", filepath.Ext(filename))
	}
}
