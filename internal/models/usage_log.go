package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// UsageLog is one image-generation record. Rows are written by the generation
// pipeline; this service only reads them.
type UsageLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time         `gorm:"index;<-:create" json:"created_at"`
	JobID         *string           `gorm:"type:text" json:"job_id"`
	PictureCamera *string           `gorm:"type:text" json:"picture_camera"`
	Result        datatypes.JSONMap `gorm:"type:jsonb" json:"result"`
}

func (UsageLog) TableName() string {
	return "image"
}

// CharacterID returns the character id embedded in the result payload, if any.
func (u *UsageLog) CharacterID() (uint, bool) {
	raw, ok := u.Result["character_id"]
	if !ok || raw == nil {
		return 0, false
	}
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		s = v
	default:
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ResultText is the result payload as JSON text, used for substring search.
func (u *UsageLog) ResultText() string {
	if len(u.Result) == 0 {
		return ""
	}
	b, err := json.Marshal(u.Result)
	if err != nil {
		return ""
	}
	return string(b)
}
