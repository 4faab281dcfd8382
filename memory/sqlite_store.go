package memory

import (
	"context"
	"time"

	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	// SqliteStore keeps memories across process restarts. Embeddings are
	// small enough per memory that JSON storage beats a dedicated vector
	// table; ranking happens in process.
	SqliteStore struct {
		db *gorm.DB
	}

	MemoryRecord struct {
		Key       string `gorm:"primaryKey"`
		Value     string `gorm:"not null"`
		Source    string `gorm:"not null"`
		Tags      datatypes.JSONType[[]string]
		Embedding datatypes.JSONType[[]float32]
		UpdatedAt time.Time
	}
)

var (
	_ Store = (*SqliteStore)(nil)
)

func (MemoryRecord) TableName() string {
	return "memories"
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	gormDB, err := db.OpenSqlite(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open memory database")
	}
	if err := gormDB.AutoMigrate(&MemoryRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to auto-migrate sqlite database at %s", path)
	}

	return &SqliteStore{db: gormDB}, nil
}

func (s *SqliteStore) Set(ctx context.Context, memory *Memory) error {
	if memory.Key == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "memory key is empty")
	}

	record := MemoryRecord{
		Key:       memory.Key,
		Value:     memory.Value,
		Source:    memory.Source,
		Tags:      datatypes.NewJSONType(memory.Tags),
		Embedding: datatypes.NewJSONType(memory.Embedding),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return errors.Wrapf(err, "failed to save memory '%s'", memory.Key)
	}
	return nil
}

func (s *SqliteStore) Get(ctx context.Context, key string) (*Memory, error) {
	var record MemoryRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(errors.ErrNotFound, "memory with key '%s' not found", key)
		}
		return nil, errors.Wrapf(err, "failed to load memory '%s'", key)
	}
	return record.toMemory(), nil
}

func (s *SqliteStore) Search(ctx context.Context, queryEmbedding []float32, limit uint) ([]ScoredMemory, error) {
	if len(queryEmbedding) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding is empty")
	}

	memories, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(memories, queryEmbedding, limit), nil
}

func (s *SqliteStore) List(ctx context.Context) ([]*Memory, error) {
	var records []MemoryRecord
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list memories")
	}

	memories := make([]*Memory, 0, len(records))
	for i := range records {
		memories = append(memories, records[i].toMemory())
	}
	return memories, nil
}

func (s *SqliteStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&MemoryRecord{}, "key = ?", key).Error; err != nil {
		return errors.Wrapf(err, "failed to delete memory '%s'", key)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return db.CloseDB(s.db)
}

func (r *MemoryRecord) toMemory() *Memory {
	return &Memory{
		Key:       r.Key,
		Value:     r.Value,
		Source:    r.Source,
		Tags:      r.Tags.Data(),
		Embedding: r.Embedding.Data(),
		UpdatedAt: r.UpdatedAt,
	}
}
