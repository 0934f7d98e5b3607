package dto

import (
	"time"

	"gorm.io/datatypes"
)

type CharacterSummary struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Ability1 string `json:"ability1"`
	Ability2 string `json:"ability2"`
}

// CharacterUsageLog is a usage record attributed to one of the caller's characters.
type CharacterUsageLog struct {
	ID            uint              `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	JobID         *string           `json:"job_id"`
	PictureCamera *string           `json:"picture_camera"`
	Result        datatypes.JSONMap `json:"result"`
	CharacterID   uint              `json:"character_id"`
	Character     CharacterSummary  `json:"character"`
}

type MessageRequest struct {
	Messages string `json:"messages"`
}

type ChartPoint struct {
	Date        string `json:"date"`
	Count       int    `json:"count"`
	DisplayDate string `json:"displayDate"`
}

type ActivityView struct {
	ID            uint              `json:"id"`
	ActionType    string            `json:"action_type"`
	CharacterID   *uint             `json:"character_id"`
	CharacterName *string           `json:"character_name"`
	Details       datatypes.JSONMap `json:"details"`
	CreatedAt     time.Time         `json:"created_at"`
}

type FavoriteCharacter struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	UseCount int64  `json:"useCount"`
}

type DashboardStats struct {
	TotalCharacters   int64              `json:"totalCharacters"`
	TotalUsage        int64              `json:"totalUsage"`
	RecentActivity    []ActivityView     `json:"recentActivity"`
	FavoriteCharacter *FavoriteCharacter `json:"favoriteCharacter"`
}
