package services

import (
	"context"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CharacterLogFilter narrows the per-character usage list.
type CharacterLogFilter struct {
	CharacterID uint
	AbilityType string
}

type UsageLogService struct {
	db *gorm.DB
}

func NewUsageLogService(db *gorm.DB) *UsageLogService {
	return &UsageLogService{db: db}
}

// List pages through every usage record, searching job_id and picture_camera.
func (s *UsageLogService) List(ctx context.Context, p listquery.Params) (listquery.Page[models.UsageLog], error) {
	query := s.db.WithContext(ctx).Model(&models.UsageLog{}).
		Scopes(
			p.DateScope("created_at"),
			listquery.SearchScope(p.Search, "job_id", "picture_camera"),
		)
	return listquery.Find[models.UsageLog](query, p, "")
}

type characterUsageRow struct {
	models.UsageLog
	CharacterID   uint
	CharacterName string
	CharacterRole string
	Ability1      string
	Ability2      string
}

// ListForCharacters pages through usage records attributed to the owner's
// characters. The store query filters by owner, character and date; search
// and abilityType are then applied to the loaded page, so a page may hold
// fewer rows than the limit while pagination still reflects the store query.
func (s *UsageLogService) ListForCharacters(ctx context.Context, owner uuid.UUID, p listquery.Params, f CharacterLogFilter) (listquery.Page[dto.CharacterUsageLog], error) {
	base := s.db.WithContext(ctx).Model(&models.UsageLog{}).
		Joins("JOIN characters ON CAST(characters.id AS TEXT) = " + s.embeddedCharacterID()).
		Scopes(
			ownership.ForOwnerOn("characters", owner),
			p.DateScope("image.created_at"),
		)
	if f.CharacterID != 0 {
		base = base.Where("characters.id = ?", f.CharacterID)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return listquery.Page[dto.CharacterUsageLog]{}, apperr.Store("failed to count usage logs", err)
	}

	var rows []characterUsageRow
	err := base.
		Select("image.*, characters.id AS character_id, characters.name AS character_name, " +
			"characters.role AS character_role, characters.ability1, characters.ability2").
		Scopes(p.Paginate("image")).
		Find(&rows).Error
	if err != nil {
		return listquery.Page[dto.CharacterUsageLog]{}, apperr.Store("failed to load usage logs", err)
	}

	data := make([]dto.CharacterUsageLog, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if !matchesCharacterLog(row, p.Search, f.AbilityType) {
			continue
		}
		data = append(data, dto.CharacterUsageLog{
			ID:            row.ID,
			CreatedAt:     row.CreatedAt,
			JobID:         row.JobID,
			PictureCamera: row.PictureCamera,
			Result:        row.Result,
			CharacterID:   row.CharacterID,
			Character: dto.CharacterSummary{
				Name:     row.CharacterName,
				Role:     row.CharacterRole,
				Ability1: row.Ability1,
				Ability2: row.Ability2,
			},
		})
	}

	return listquery.Page[dto.CharacterUsageLog]{
		Data:             data,
		Pagination:       listquery.NewPagination(p.Page, p.Limit, total),
		FilteredInMemory: len(data) < len(rows),
	}, nil
}

func matchesCharacterLog(row *characterUsageRow, search, abilityType string) bool {
	if abilityType != "" &&
		!strings.Contains(row.Ability1, abilityType) &&
		!strings.Contains(row.Ability2, abilityType) {
		return false
	}
	return listquery.Contains(search,
		deref(row.JobID),
		deref(row.PictureCamera),
		row.CharacterName,
		row.CharacterRole,
		row.Ability1,
		row.Ability2,
		row.ResultText(),
	)
}

// embeddedCharacterID extracts result.character_id as text.
func (s *UsageLogService) embeddedCharacterID() string {
	if s.db.Dialector.Name() == "postgres" {
		return "(image.result->>'character_id')"
	}
	return "CAST(json_extract(image.result, '$.character_id') AS TEXT)"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
