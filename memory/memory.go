package memory

import "time"

type (
	// Memory is one remembered fact about the user: a stable key, a free-text
	// value, where it came from and optional tags. The embedding is computed
	// from the value at save time and never serialized to clients.
	Memory struct {
		Key       string       `json:"key" jsonschema:"description=Stable snake_case identifier for the fact, e.g. 'allergy_penicillin'"`
		Value     string       `json:"value" jsonschema:"description=The fact itself in plain text"`
		Source    MemorySource `json:"source" jsonschema:"description=Who stated the fact: 'user' or 'assistant'"`
		Tags      []string     `json:"tags,omitempty" jsonschema:"description=Optional topic tags such as 'allergy' or 'medication'"`
		UpdatedAt time.Time    `json:"updatedAt,omitempty"`

		Embedding []float32 `json:"-"`
	}

	MemorySource = string

	// ScoredMemory pairs a memory with its similarity to a recall query.
	ScoredMemory struct {
		Memory *Memory `json:"memory"`
		Score  float64 `json:"score" jsonschema:"description=Similarity of the memory to the query (0.0~1.0)"`
	}
)

const (
	MemorySourceUser      MemorySource = "user"
	MemorySourceAssistant MemorySource = "assistant"
)
