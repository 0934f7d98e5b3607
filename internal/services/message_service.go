package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"gorm.io/gorm"
)

type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

func (s *MessageService) List(ctx context.Context, p listquery.Params) (listquery.Page[models.Message], error) {
	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Scopes(
			p.DateScope("created_at"),
			listquery.SearchScope(p.Search, "messages"),
		)
	return listquery.Find[models.Message](query, p, "")
}

func (s *MessageService) Create(ctx context.Context, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Invalid("message text is required")
	}
	msg := models.Message{Messages: text}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperr.Store("failed to create message", err)
	}
	return &msg, nil
}

func (s *MessageService) Update(ctx context.Context, id uint, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Invalid("message text is required")
	}

	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, id).Error; err != nil {
			return err
		}
		msg.Messages = text
		return tx.Model(&msg).Update("messages", text).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("message")
		}
		return nil, apperr.Store("failed to update message", err)
	}
	return &msg, nil
}

func (s *MessageService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Message{}, id)
	if res.Error != nil {
		return apperr.Store("failed to delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("message")
	}
	return nil
}
