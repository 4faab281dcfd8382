package config

type MemoryConfig struct {
	// SqliteEnabled persists memories to sqlite; otherwise an in-memory
	// store is used and memories last for the process lifetime.
	SqliteEnabled bool `json:"sqliteEnabled,omitempty"`

	// SqlitePath is the sqlite database file for persisted memories.
	SqlitePath string `json:"sqlitePath,omitempty"`
}

func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		SqliteEnabled: false,
		SqlitePath:    "",
	}
}
