package config

type IngestConfig struct {
	// SqlitePath is the sqlite-vec database file for document vectors.
	// ":memory:" keeps vectors for the process lifetime only.
	SqlitePath string `json:"sqlitePath,omitempty"`

	// ChunkSize is the target chunk length in runes.
	ChunkSize int `json:"chunkSize,omitempty"`

	// ChunkOverlap is the number of runes shared between adjacent chunks.
	// Every chunk after the first begins ChunkOverlap runes before the
	// previous chunk's end.
	ChunkOverlap int `json:"chunkOverlap,omitempty"`
}

func NewIngestConfig() *IngestConfig {
	return &IngestConfig{
		SqlitePath:   ":memory:",
		ChunkSize:    500,
		ChunkOverlap: 50,
	}
}
