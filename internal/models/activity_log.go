package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Activity action types.
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionUse          = "use"
	ActionUpdateImages = "update_images"
)

// ActivityLog is an append-only audit row for a character mutation.
// CharacterID is a plain column, not a foreign key: rows outlive the
// character they describe.
type ActivityLog struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	ActionType  string            `gorm:"size:32;not null;index" json:"action_type"`
	CharacterID *uint             `gorm:"index" json:"character_id"`
	Details     datatypes.JSONMap `gorm:"type:jsonb" json:"details"`
	IPAddress   string            `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent   string            `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt   time.Time         `gorm:"index;<-:create" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "logs"
}
