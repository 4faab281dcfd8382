package ingest

import (
	"strings"

	"github.com/medguideai/medguide/errors"
)

// Chunker splits extracted text into fixed-size chunks with a fixed overlap,
// so that context crossing a chunk boundary appears in both neighbors.
// Invariant: every chunk after the first begins exactly `overlap` runes
// before the previous chunk's end.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "chunk overlap must be in [0, size), got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Chunk(documentId, text string) []*Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []*Chunk
	start := 0
	for idx := 0; ; idx++ {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, &Chunk{
			ID:         ChunkID(documentId, idx),
			DocumentID: documentId,
			Index:      idx,
			Text:       string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}
