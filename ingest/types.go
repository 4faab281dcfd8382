package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

type (
	// Chunk is the unit of embedding and retrieval: a bounded substring of a
	// document's extracted text. Chunks are immutable once stored; they are
	// removed only by deleting their collection.
	Chunk struct {
		ID         string         `json:"id"`
		DocumentID string         `json:"documentId"`
		Index      int            `json:"index"`
		Text       string         `json:"text"`
		Embedding  []float32      `json:"embedding"`
		Metadata   map[string]any `json:"metadata"`
	}

	SearchResult struct {
		*Chunk `json:",inline"`
		Score  float32 `json:"score"`
	}

	// Result reports what one ingestion run produced.
	Result struct {
		Collection string `json:"collection"`
		DocumentID string `json:"documentId"`
		NumChunks  int    `json:"numChunks"`
		NumPages   int    `json:"numPages"`
	}
)

// ChunkID is deterministic so re-ingesting the same document overwrites its
// chunks instead of duplicating them.
func ChunkID(documentId string, index int) string {
	return fmt.Sprintf("%s:%d", documentId, index)
}

// CollectionNameFromFilename derives a stable collection name from an
// uploaded filename: base name without extension, lowercased, with runs of
// non-alphanumeric characters collapsed to single underscores.
func CollectionNameFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "document"
	}
	return name
}
