// Package ownership decides whether the caller may act on an owned record.
// Authentication is checked first, then existence, then ownership.
package ownership

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotOwner = apperr.New(apperr.ErrForbidden, "permission denied")

// Guard loads characters for the ownership check.
type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Character loads the character and verifies the caller owns it.
// Returns a NotFound error when no such character exists and ErrNotOwner
// when it belongs to someone else.
func (g *Guard) Character(ctx context.Context, caller uuid.UUID, id uint) (*models.Character, error) {
	if caller == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	var ch models.Character
	if err := g.db.WithContext(ctx).First(&ch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("character")
		}
		return nil, apperr.Store("failed to load character", err)
	}
	if ch.UserID != caller {
		return nil, ErrNotOwner
	}
	return &ch, nil
}

// SetCharacter stores the verified character on the request.
func SetCharacter(c *fiber.Ctx, ch *models.Character) {
	c.Locals(characterLocal, ch)
}

// CharacterFrom returns the character verified earlier in the chain, or nil.
func CharacterFrom(c *fiber.Ctx) *models.Character {
	ch, _ := c.Locals(characterLocal).(*models.Character)
	return ch
}
