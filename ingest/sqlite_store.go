//go:build !without_sqlite

package ingest

import (
	"context"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SqliteStore implements Store using SQLite with the sqlite-vec extension.
type SqliteStore struct {
	db     *gorm.DB
	vecDim int
}

type SqliteChunkRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Collection string `gorm:"index;not null"`
	DocumentID string `gorm:"index"`
	ChunkIndex int
	Text       string
	Metadata   datatypes.JSONType[map[string]any]
}

func (SqliteChunkRecord) TableName() string {
	return "chunks"
}

var (
	_ Store = (*SqliteStore)(nil)
)

func NewSqliteStore(dbPath string, dimension int) (*SqliteStore, error) {
	sqlite_vec.Auto()

	gormDB, err := db.OpenSqlite(dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open vector database")
	}

	store := &SqliteStore{
		db:     gormDB,
		vecDim: dimension,
	}

	if err := gormDB.AutoMigrate(&SqliteChunkRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate chunk table")
	}

	if err := store.createVectorTable(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SqliteStore) createVectorTable() error {
	var sqliteVersion, vecVersion string
	err := s.db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion)
	if err != nil {
		return errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}

	createTableSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d]
		);
	`, s.vecDim)

	if err := s.db.Exec(createTableSQL).Error; err != nil {
		return errors.Wrapf(err, "failed to create chunk_vectors table")
	}

	return nil
}

// Upsert implements Store.Upsert.
func (s *SqliteStore) Upsert(ctx context.Context, collection string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx := s.db.WithContext(ctx)
	return tx.Transaction(func(tx *gorm.DB) error {
		for _, chunk := range chunks {
			record := SqliteChunkRecord{
				ID:         recordKey(collection, chunk.ID),
				Collection: collection,
				DocumentID: chunk.DocumentID,
				ChunkIndex: chunk.Index,
				Text:       chunk.Text,
				Metadata:   datatypes.NewJSONType(chunk.Metadata),
			}

			// Save creates or overwrites by primary key.
			if err := tx.Save(&record).Error; err != nil {
				return errors.Wrapf(err, "failed to save chunk record")
			}

			if len(chunk.Embedding) != s.vecDim {
				return errors.Errorf("embedding dimension mismatch: got %d, expected %d", len(chunk.Embedding), s.vecDim)
			}

			if err := tx.Exec("DELETE FROM chunk_vectors WHERE chunk_id = ?", record.ID).Error; err != nil {
				return errors.Wrapf(err, "failed to delete existing vector")
			}

			serializedEmbedding, err := sqlite_vec.SerializeFloat32(chunk.Embedding)
			if err != nil {
				return errors.Wrapf(err, "failed to serialize embedding")
			}

			insertSQL := "INSERT INTO chunk_vectors (chunk_id, embedding) VALUES (?, ?)"
			if err := tx.Exec(insertSQL, record.ID, serializedEmbedding).Error; err != nil {
				return errors.Wrapf(err, "failed to insert chunk vector")
			}
		}

		return nil
	})
}

// Query implements Store.Query.
func (s *SqliteStore) Query(ctx context.Context, collection string, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return []SearchResult{}, nil
	}

	var collectionChunkIds []string
	if err := s.db.WithContext(ctx).
		Model(&SqliteChunkRecord{}).
		Where("collection = ?", collection).
		Pluck("id", &collectionChunkIds).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list collection chunk ids")
	}
	if len(collectionChunkIds) == 0 {
		return []SearchResult{}, nil
	}

	serializedQuery, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	searchSQL := `
		SELECT chunk_id, distance
		FROM chunk_vectors
		WHERE embedding MATCH ? AND chunk_id IN ?
		ORDER BY distance
		LIMIT ?
	`
	rows, err := s.db.WithContext(ctx).Raw(searchSQL, serializedQuery, collectionChunkIds, limit).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute search query")
	}
	defer rows.Close()

	var ids []string
	distanceMap := make(map[string]float32)
	for rows.Next() {
		var id string
		var distance float32
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan result row")
		}
		ids = append(ids, id)
		distanceMap[id] = distance
	}

	if len(ids) == 0 {
		return []SearchResult{}, nil
	}

	var records []SqliteChunkRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch chunk records")
	}

	recordMap := make(map[string]SqliteChunkRecord, len(records))
	for _, record := range records {
		recordMap[record.ID] = record
	}

	// Reassemble in distance order.
	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		record, ok := recordMap[id]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Chunk: &Chunk{
				ID:         ChunkID(record.DocumentID, record.ChunkIndex),
				DocumentID: record.DocumentID,
				Index:      record.ChunkIndex,
				Text:       record.Text,
				Metadata:   record.Metadata.Data(),
			},
			Score: 1.0 - distanceMap[id],
		})
	}

	return results, nil
}

// ListCollections implements Store.ListCollections.
func (s *SqliteStore) ListCollections(ctx context.Context) ([]string, error) {
	var collections []string
	if err := s.db.WithContext(ctx).
		Model(&SqliteChunkRecord{}).
		Distinct("collection").
		Order("collection ASC").
		Pluck("collection", &collections).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list collections")
	}
	return collections, nil
}

// DeleteCollection implements Store.DeleteCollection.
func (s *SqliteStore) DeleteCollection(ctx context.Context, collection string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chunkIds []string
		if err := tx.Model(&SqliteChunkRecord{}).Where("collection = ?", collection).Pluck("id", &chunkIds).Error; err != nil {
			return errors.Wrapf(err, "failed to list collection chunks")
		}

		if len(chunkIds) > 0 {
			if err := tx.Exec("DELETE FROM chunk_vectors WHERE chunk_id IN ?", chunkIds).Error; err != nil {
				return errors.Wrapf(err, "failed to delete vectors")
			}
			if err := tx.Delete(&SqliteChunkRecord{}, "id IN ?", chunkIds).Error; err != nil {
				return errors.Wrapf(err, "failed to delete chunk records")
			}
		}

		return nil
	})
}

// Close implements Store.Close.
func (s *SqliteStore) Close() error {
	return db.CloseDB(s.db)
}

// recordKey namespaces chunk IDs by collection so the same document can live
// in more than one collection.
func recordKey(collection, chunkId string) string {
	return collection + "/" + chunkId
}
