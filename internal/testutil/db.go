// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/database"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.Options())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given email and returns it.
func CreateUser(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateCharacter inserts an active character owned by owner.
func CreateCharacter(t testing.TB, db *gorm.DB, owner uuid.UUID, name string) models.Character {
	t.Helper()
	ch := models.Character{
		UserID:      owner,
		Name:        name,
		Role:        "guide",
		Ability1:    "strength",
		Ability1Max: 100,
		Ability2:    "wisdom",
		Ability2Max: 100,
		IsActive:    true,
	}
	require.NoError(t, db.Create(&ch).Error)
	return ch
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
