package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createActivity(t *testing.T, db *gorm.DB, owner uuid.UUID, action string, characterID uint, at time.Time) {
	t.Helper()
	row := models.ActivityLog{UserID: owner, ActionType: action, CreatedAt: at}
	if characterID != 0 {
		row.CharacterID = &characterID
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestDashboardStats(t *testing.T) {
	db := testutil.NewDB(t)
	svc := services.NewDashboardService(db)
	owner := testutil.CreateUser(t, db, "owner@test.dev")
	other := testutil.CreateUser(t, db, "other@test.dev")

	mira := testutil.CreateCharacter(t, db, owner.ID, "Mira")
	rook := testutil.CreateCharacter(t, db, owner.ID, "Rook")
	retired := testutil.CreateCharacter(t, db, owner.ID, "Retired")
	require.NoError(t, db.Model(&retired).Update("is_active", false).Error)
	theirs := testutil.CreateCharacter(t, db, other.ID, "Theirs")

	base := testutil.Day(2026, 3, 1)
	createActivity(t, db, owner.ID, models.ActionUse, rook.ID, base.Add(1*time.Minute))
	createActivity(t, db, owner.ID, models.ActionUse, rook.ID, base.Add(2*time.Minute))
	createActivity(t, db, owner.ID, models.ActionUse, mira.ID, base.Add(3*time.Minute))
	for i := 0; i < 4; i++ {
		createActivity(t, db, owner.ID, models.ActionUpdate, mira.ID, base.Add(time.Duration(10+i)*time.Minute))
	}
	for i := 0; i < 3; i++ {
		createActivity(t, db, other.ID, models.ActionUse, theirs.ID, base.Add(time.Hour))
	}
	createUsage(t, db, base, "job-1", nil)
	createUsage(t, db, base, "job-2", nil)

	stats, err := svc.Stats(context.Background(), owner.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalCharacters)
	assert.EqualValues(t, 2, stats.TotalUsage)
	require.Len(t, stats.RecentActivity, 5)
	assert.Equal(t, models.ActionUpdate, stats.RecentActivity[0].ActionType)
	require.NotNil(t, stats.RecentActivity[0].CharacterName)
	assert.Equal(t, "Mira", *stats.RecentActivity[0].CharacterName)

	require.NotNil(t, stats.FavoriteCharacter)
	assert.Equal(t, rook.ID, stats.FavoriteCharacter.ID)
	assert.Equal(t, "Rook", stats.FavoriteCharacter.Name)
	assert.EqualValues(t, 2, stats.FavoriteCharacter.UseCount)
}

func TestDashboardStatsWithoutActivity(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@test.dev")

	stats, err := services.NewDashboardService(db).Stats(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCharacters)
	assert.Empty(t, stats.RecentActivity)
	assert.Nil(t, stats.FavoriteCharacter)
}

func TestRecentActivityLimit(t *testing.T) {
	db := testutil.NewDB(t)
	svc := services.NewDashboardService(db)
	owner := testutil.CreateUser(t, db, "owner@test.dev")

	base := testutil.Day(2026, 3, 1)
	for i := 0; i < 60; i++ {
		createActivity(t, db, owner.ID, models.ActionCreate, 0, base.Add(time.Duration(i)*time.Second))
	}

	rows, err := svc.RecentActivity(context.Background(), owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, rows, services.DefaultActivityLimit)
	assert.Nil(t, rows[0].CharacterName)

	rows, err = svc.RecentActivity(context.Background(), owner.ID, 500)
	require.NoError(t, err)
	assert.Len(t, rows, services.MaxActivityLimit)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
}
