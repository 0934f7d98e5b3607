package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 50
	statsActivityLimit   = 5
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats gathers the summary cards concurrently.
func (s *DashboardService) Stats(ctx context.Context, owner uuid.UUID) (*dto.DashboardStats, error) {
	var stats dto.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Character{}).
			Scopes(ownership.ForOwner(owner)).
			Where("is_active = ?", true).
			Count(&stats.TotalCharacters).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.UsageLog{}).Count(&stats.TotalUsage).Error
	})
	g.Go(func() error {
		recent, err := s.recentActivity(gctx, owner, statsActivityLimit)
		stats.RecentActivity = recent
		return err
	})
	g.Go(func() error {
		fav, err := s.favoriteCharacter(gctx, owner)
		stats.FavoriteCharacter = fav
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, apperr.Store("failed to load dashboard stats", err)
	}
	return &stats, nil
}

// RecentActivity returns the owner's latest activity rows with character
// names. limit is clamped into [1, MaxActivityLimit].
func (s *DashboardService) RecentActivity(ctx context.Context, owner uuid.UUID, limit int) ([]dto.ActivityView, error) {
	if limit == 0 {
		limit = DefaultActivityLimit
	}
	rows, err := s.recentActivity(ctx, owner, listquery.ClampLimit(limit, MaxActivityLimit))
	if err != nil {
		return nil, apperr.Store("failed to load activity", err)
	}
	return rows, nil
}

func (s *DashboardService) recentActivity(ctx context.Context, owner uuid.UUID, limit int) ([]dto.ActivityView, error) {
	rows := make([]dto.ActivityView, 0, limit)
	err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("logs.id, logs.action_type, logs.character_id, characters.name AS character_name, logs.details, logs.created_at").
		Joins("LEFT JOIN characters ON characters.id = logs.character_id").
		Scopes(ownership.ForOwnerOn("logs", owner)).
		Order("logs.created_at DESC").Order("logs.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

type useCount struct {
	CharacterID uint
	Uses        int64
}

func (s *DashboardService) favoriteCharacter(ctx context.Context, owner uuid.UUID) (*dto.FavoriteCharacter, error) {
	var top useCount
	err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("logs.character_id, COUNT(*) AS uses").
		Joins("JOIN characters ON characters.id = logs.character_id").
		Scopes(ownership.ForOwnerOn("characters", owner)).
		Where("logs.action_type = ?", models.ActionUse).
		Group("logs.character_id").
		Order("uses DESC").Order("logs.character_id ASC").
		Limit(1).
		Take(&top).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ch models.Character
	if err := s.db.WithContext(ctx).Select("id", "name").First(&ch, top.CharacterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dto.FavoriteCharacter{ID: ch.ID, Name: ch.Name, UseCount: top.Uses}, nil
}
