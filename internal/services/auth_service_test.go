package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", SessionTTL: time.Hour, CookieName: "session"}
}

func TestAuthLoginAndLogout(t *testing.T) {
	db := testutil.NewDB(t)
	sessions := session.NewMemoryStore()
	svc := services.NewAuthService(db, testConfig(), sessions)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, " Admin@Test.dev ", "correct horse", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@test.dev", user.Email)

	_, err = svc.CreateUser(ctx, "admin@test.dev", "another password", "")
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	_, _, err = svc.Login(ctx, &dto.LoginRequest{Email: "admin@test.dev", Password: "wrong password"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	resp, sess, err := svc.Login(ctx, &dto.LoginRequest{Email: "ADMIN@test.dev", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	token, err := jwt.Parse(sess.Token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, sess.ID, claims["jti"])

	require.NoError(t, svc.Logout(ctx, sess.ID, sess.ExpiresAt))
	revoked, err := sessions.IsRevoked(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Role)
}

func TestCreateUserValidation(t *testing.T) {
	svc := services.NewAuthService(testutil.NewDB(t), testConfig(), session.NewMemoryStore())

	_, err := svc.CreateUser(context.Background(), "", "long enough", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	_, err = svc.CreateUser(context.Background(), "a@test.dev", "short", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}
