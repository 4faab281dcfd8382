package entity

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// ActiveCollection is the vector collection queried by default when the
	// model searches documents without naming a collection.
	ActiveCollection string

	Turns []Turn `gorm:"foreignKey:SessionID"`
}

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleTool      TurnRole = "tool"
)

// Turn is one entry of a session transcript. Turns are append-only: the
// transcript order, by ascending ID, is the context sent to the model and
// is never rewritten.
type Turn struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	SessionID string   `gorm:"index"`
	Role      TurnRole `gorm:"not null"`
	Content   string

	// ToolName and ToolArgs are set only on tool turns.
	ToolName string
	ToolArgs datatypes.JSONType[map[string]any]
}
