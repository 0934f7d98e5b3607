package dto

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
)

// CharacterRequest is the body of create and update. On update, absent
// fields are left unchanged.
type CharacterRequest struct {
	Name             *string         `json:"name"`
	Role             *string         `json:"role"`
	Description      *string         `json:"description"`
	Ability1         *string         `json:"ability1"`
	Ability1Min      *int            `json:"ability1_min"`
	Ability1Max      *int            `json:"ability1_max"`
	Ability2         *string         `json:"ability2"`
	Ability2Min      *int            `json:"ability2_min"`
	Ability2Max      *int            `json:"ability2_max"`
	IsActive         *bool           `json:"is_active"`
	PictureSelect    *string         `json:"picture_select"`
	PictureCharacter *string         `json:"picture_character"`
	PictureCartoon   json.RawMessage `json:"picture_cartoon"`
}

type ImagesRequest struct {
	Images json.RawMessage `json:"images"`
}

type ImagesResponse struct {
	CharacterID   uint              `json:"characterId"`
	CharacterName string            `json:"characterName"`
	Images        []models.ImageRef `json:"images"`
}

type CharacterImages struct {
	ID             uint              `json:"id"`
	Name           string            `json:"name"`
	PictureCartoon []models.ImageRef `json:"picture_cartoon"`
}

type UpdateImagesResponse struct {
	Success   bool            `json:"success"`
	Character CharacterImages `json:"character"`
	Message   string          `json:"message"`
}

// SingleImagesRequest sets the single-image fields. An absent field is left
// unchanged; an empty string clears it.
type SingleImagesRequest struct {
	PictureSelect    *string `json:"picture_select"`
	PictureCharacter *string `json:"picture_character"`
}

type UploadResponse struct {
	URL       string `json:"url"`
	FileName  string `json:"fileName"`
	Message   string `json:"message"`
	SlotIndex *int   `json:"slotIndex,omitempty"`
	ImageType string `json:"imageType,omitempty"`
}

type DeleteImageRequest struct {
	CharacterID *FlexID `json:"characterId"`
	SlotIndex   *int    `json:"slotIndex"`
	URL         string  `json:"url"`
	ImageType   string  `json:"imageType"`
}

type DeleteImageResponse struct {
	Message     string  `json:"message"`
	CharacterID *FlexID `json:"characterId"`
	SlotIndex   *int    `json:"slotIndex,omitempty"`
	ImageType   string  `json:"imageType,omitempty"`
}

// FlexID is a record id that may arrive as a JSON number or a numeric string.
type FlexID uint

func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexID(n)
	return nil
}

func (f *FlexID) Uint() uint {
	if f == nil {
		return 0
	}
	return uint(*f)
}
