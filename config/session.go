package config

type SessionConfig struct {
	// SqlitePath is the sqlite database file for session transcripts.
	SqlitePath string `json:"sqlitePath,omitempty"`
}

func NewSessionConfig() *SessionConfig {
	return &SessionConfig{
		SqlitePath: ":memory:",
	}
}
