package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/activity"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestMeta is copied onto activity rows.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CharacterFilter narrows the character list beyond the common parameters.
type CharacterFilter struct {
	Role     string
	IsActive *bool
}

var characterColumns = []string{
	"name", "role", "description",
	"ability1", "ability1_min", "ability1_max",
	"ability2", "ability2_min", "ability2_max",
	"is_active", "picture_select", "picture_character", "picture_cartoon",
}

type CharacterService struct {
	db       *gorm.DB
	activity activity.Logger
}

func NewCharacterService(db *gorm.DB, activity activity.Logger) *CharacterService {
	return &CharacterService{db: db, activity: activity}
}

func (s *CharacterService) List(ctx context.Context, owner uuid.UUID, p listquery.Params, f CharacterFilter) (listquery.Page[models.Character], error) {
	query := s.db.WithContext(ctx).Model(&models.Character{}).
		Scopes(
			ownership.ForOwner(owner),
			p.DateScope("created_at"),
			listquery.SearchScope(p.Search, "name", "role", "description"),
		)
	if f.Role != "" {
		query = query.Where("role = ?", f.Role)
	}
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}
	return listquery.Find[models.Character](query, p, "")
}

// Create inserts the character together with any images in the body, in one
// transaction.
func (s *CharacterService) Create(ctx context.Context, owner uuid.UUID, req *dto.CharacterRequest, meta RequestMeta) (*models.Character, error) {
	ch := models.Character{UserID: owner, IsActive: true, Ability1Max: 100, Ability2Max: 100}
	if err := applyCharacterRequest(&ch, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ch.Name) == "" {
		return nil, apperr.Invalid("name is required")
	}
	if strings.TrimSpace(ch.Role) == "" {
		return nil, apperr.Invalid("role is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&ch).Error
	})
	if err != nil {
		return nil, apperr.Store("failed to create character", err)
	}

	id := ch.ID
	s.activity.Record(ctx, activity.Entry{
		UserID:      owner,
		Action:      models.ActionCreate,
		CharacterID: &id,
		Description: fmt.Sprintf("Character %q created", ch.Name),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	})
	return &ch, nil
}

// Update applies req to a character whose ownership was already verified.
func (s *CharacterService) Update(ctx context.Context, ch *models.Character, req *dto.CharacterRequest, meta RequestMeta) (*models.Character, error) {
	updated := *ch
	if err := applyCharacterRequest(&updated, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(updated.Name) == "" {
		return nil, apperr.Invalid("name must not be empty")
	}

	res := s.db.WithContext(ctx).Model(&updated).Select(characterColumns).Updates(&updated)
	if res.Error != nil {
		return nil, apperr.Store("failed to update character", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("character")
	}

	id := updated.ID
	s.activity.Record(ctx, activity.Entry{
		UserID:      updated.UserID,
		Action:      models.ActionUpdate,
		CharacterID: &id,
		Description: fmt.Sprintf("Character %q updated", updated.Name),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	})
	return &updated, nil
}

func (s *CharacterService) Delete(ctx context.Context, ch *models.Character, meta RequestMeta) error {
	res := s.db.WithContext(ctx).Delete(&models.Character{}, ch.ID)
	if res.Error != nil {
		return apperr.Store("failed to delete character", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("character")
	}

	id := ch.ID
	s.activity.Record(ctx, activity.Entry{
		UserID:      ch.UserID,
		Action:      models.ActionDelete,
		CharacterID: &id,
		Description: fmt.Sprintf("Character %q deleted", ch.Name),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	})
	return nil
}

func (s *CharacterService) Images(ch *models.Character) *dto.ImagesResponse {
	return &dto.ImagesResponse{
		CharacterID:   ch.ID,
		CharacterName: ch.Name,
		Images:        ch.Images(),
	}
}

// UpdateImages replaces the cartoon array. An empty array clears it.
func (s *CharacterService) UpdateImages(ctx context.Context, ch *models.Character, req *dto.ImagesRequest, meta RequestMeta) (*dto.UpdateImagesResponse, error) {
	if len(req.Images) == 0 {
		return nil, apperr.Invalid("images array is required")
	}
	refs, err := ParseImageArray(req.Images)
	if err != nil {
		return nil, err
	}

	updated := *ch
	updated.PictureCartoon = refs
	if len(refs) == 0 {
		updated.PictureCartoon = nil
	}

	res := s.db.WithContext(ctx).Model(&updated).Select("picture_cartoon").Updates(&updated)
	if res.Error != nil {
		return nil, apperr.Store("failed to update images", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("character")
	}

	id := updated.ID
	s.activity.Record(ctx, activity.Entry{
		UserID:      updated.UserID,
		Action:      models.ActionUpdateImages,
		CharacterID: &id,
		Description: fmt.Sprintf("Character %q images updated (%d)", updated.Name, len(refs)),
		Extra:       map[string]interface{}{"image_count": len(refs)},
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	})

	return &dto.UpdateImagesResponse{
		Success: true,
		Character: dto.CharacterImages{
			ID:             updated.ID,
			Name:           updated.Name,
			PictureCartoon: updated.PictureCartoon,
		},
		Message: fmt.Sprintf("images updated (%d)", len(refs)),
	}, nil
}

// UpdateSingleImages sets picture_select and picture_character.
func (s *CharacterService) UpdateSingleImages(ctx context.Context, ch *models.Character, req *dto.SingleImagesRequest, meta RequestMeta) (*models.Character, error) {
	updated := *ch
	var columns []string
	if req.PictureSelect != nil {
		updated.PictureSelect = optionalURL(req.PictureSelect)
		columns = append(columns, models.ImageTypeSelect)
	}
	if req.PictureCharacter != nil {
		updated.PictureCharacter = optionalURL(req.PictureCharacter)
		columns = append(columns, models.ImageTypeCharacter)
	}
	if len(columns) == 0 {
		return nil, apperr.Invalid("picture_select or picture_character is required")
	}

	res := s.db.WithContext(ctx).Model(&updated).Select(columns).Updates(&updated)
	if res.Error != nil {
		return nil, apperr.Store("failed to update images", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("character")
	}

	id := updated.ID
	s.activity.Record(ctx, activity.Entry{
		UserID:      updated.UserID,
		Action:      models.ActionUpdateImages,
		CharacterID: &id,
		Description: fmt.Sprintf("Character %q %s updated", updated.Name, strings.Join(columns, ", ")),
		Extra:       map[string]interface{}{"fields": columns},
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	})
	return &updated, nil
}

func applyCharacterRequest(ch *models.Character, req *dto.CharacterRequest) error {
	if req.Name != nil {
		ch.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		ch.Role = strings.TrimSpace(*req.Role)
	}
	if req.Description != nil {
		ch.Description = *req.Description
	}
	if req.Ability1 != nil {
		ch.Ability1 = *req.Ability1
	}
	if req.Ability1Min != nil {
		ch.Ability1Min = *req.Ability1Min
	}
	if req.Ability1Max != nil {
		ch.Ability1Max = *req.Ability1Max
	}
	if req.Ability2 != nil {
		ch.Ability2 = *req.Ability2
	}
	if req.Ability2Min != nil {
		ch.Ability2Min = *req.Ability2Min
	}
	if req.Ability2Max != nil {
		ch.Ability2Max = *req.Ability2Max
	}
	if req.IsActive != nil {
		ch.IsActive = *req.IsActive
	}
	if req.PictureSelect != nil {
		ch.PictureSelect = optionalURL(req.PictureSelect)
	}
	if req.PictureCharacter != nil {
		ch.PictureCharacter = optionalURL(req.PictureCharacter)
	}
	if len(req.PictureCartoon) > 0 && string(req.PictureCartoon) != "null" {
		refs, err := ParseImageArray(req.PictureCartoon)
		if err != nil {
			return err
		}
		ch.PictureCartoon = refs
		if len(refs) == 0 {
			ch.PictureCartoon = nil
		}
	}

	if ch.Ability1Min > ch.Ability1Max {
		return apperr.Invalid("ability1_min must not exceed ability1_max")
	}
	if ch.Ability2Min > ch.Ability2Max {
		return apperr.Invalid("ability2_min must not exceed ability2_max")
	}
	return nil
}
