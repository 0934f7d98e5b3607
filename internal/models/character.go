package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxCartoonImages is the number of cartoon image slots a character has.
const MaxCartoonImages = 5

// ImageRef is one entry of a character's picture_cartoon array.
type ImageRef struct {
	URL string `json:"url"`
}

// Character is an owner-scoped profile with two ability ranges and images.
type Character struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Role             string     `gorm:"size:255;index" json:"role"`
	Description      string     `gorm:"type:text" json:"description"`
	Ability1         string     `gorm:"size:100" json:"ability1"`
	Ability1Min      int        `gorm:"not null" json:"ability1_min"`
	Ability1Max      int        `gorm:"not null" json:"ability1_max"`
	Ability2         string     `gorm:"size:100" json:"ability2"`
	Ability2Min      int        `gorm:"not null" json:"ability2_min"`
	Ability2Max      int        `gorm:"not null" json:"ability2_max"`
	IsActive         bool       `gorm:"not null" json:"is_active"`
	PictureSelect    *string    `gorm:"type:text" json:"picture_select"`
	PictureCharacter *string    `gorm:"type:text" json:"picture_character"`
	PictureCartoon   []ImageRef `gorm:"type:jsonb;serializer:json" json:"picture_cartoon"`
	CreatedAt        time.Time  `gorm:"index;<-:create" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Character) TableName() string {
	return "characters"
}

// Images returns the cartoon array as a plain slice, never nil.
func (c *Character) Images() []ImageRef {
	if len(c.PictureCartoon) == 0 {
		return []ImageRef{}
	}
	return c.PictureCartoon
}

// CleanImageRefs drops entries whose url is blank. Kept entries are not rewritten.
func CleanImageRefs(refs []ImageRef) []ImageRef {
	valid := make([]ImageRef, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.URL) == "" {
			continue
		}
		valid = append(valid, ref)
	}
	return valid
}

// Single-image fields that can be uploaded next to the cartoon slots.
const (
	ImageTypeSelect    = "picture_select"
	ImageTypeCharacter = "picture_character"
)

func IsSingleImageType(t string) bool {
	return t == ImageTypeSelect || t == ImageTypeCharacter
}
