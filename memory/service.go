package memory

import (
	"context"
	"log/slog"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/ingest"
)

type (
	// Service embeds memory values on write and queries on read, delegating
	// storage to a Store.
	Service interface {
		Remember(ctx context.Context, memory *Memory) error
		Recall(ctx context.Context, query string, limit uint) ([]ScoredMemory, error)
		List(ctx context.Context) ([]*Memory, error)
		Forget(ctx context.Context, key string) error
		Close() error
	}

	service struct {
		store    Store
		embedder ingest.Embedder
		logger   *slog.Logger
	}
)

var (
	_ Service = (*service)(nil)
)

func NewService(conf *config.MemoryConfig, logger *slog.Logger, embedder ingest.Embedder) (Service, error) {
	var (
		store Store
		err   error
	)
	if conf.SqliteEnabled {
		store, err = NewSqliteStore(conf.SqlitePath)
		if err != nil {
			return nil, err
		}
	} else {
		store = NewInMemoryStore()
	}

	return NewServiceWithStore(logger, embedder, store)
}

func NewServiceWithStore(logger *slog.Logger, embedder ingest.Embedder, store Store) (Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required - check OpenAI API key configuration")
	}
	return &service{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}, nil
}

func (s *service) Remember(ctx context.Context, memory *Memory) error {
	if memory.Key == "" || memory.Value == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "memory key and value are required")
	}

	embeddings, err := s.embedder.Embed(ctx, memory.Value)
	if err != nil {
		return errors.Wrapf(err, "failed to embed memory '%s'", memory.Key)
	}
	if len(embeddings) == 0 {
		return errors.Wrapf(errors.ErrEmbedding, "no embedding generated for memory '%s'", memory.Key)
	}
	memory.Embedding = embeddings[0]

	if err := s.store.Set(ctx, memory); err != nil {
		return err
	}
	s.logger.Debug("Saved memory", "key", memory.Key, "source", memory.Source)
	return nil
}

func (s *service) Recall(ctx context.Context, query string, limit uint) ([]ScoredMemory, error) {
	embeddings, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed recall query")
	}
	if len(embeddings) == 0 {
		return nil, errors.Wrapf(errors.ErrEmbedding, "no embedding generated for recall query")
	}

	return s.store.Search(ctx, embeddings[0], limit)
}

func (s *service) List(ctx context.Context) ([]*Memory, error) {
	return s.store.List(ctx)
}

func (s *service) Forget(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

func (s *service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
