package client_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/client"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/slots"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/testutil"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func startServer(t *testing.T) (*httptest.Server, *testutil.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp(t, db)
	srv := httptest.NewServer(adaptor.FiberApp(app.Fiber))
	t.Cleanup(srv.Close)
	return srv, app, db
}

func login(t *testing.T, srv *httptest.Server, db *gorm.DB, app *testutil.App, email string) (*client.Client, models.User) {
	t.Helper()
	auth := services.NewAuthService(db, app.Config, app.Sessions)
	user, err := auth.CreateUser(context.Background(), email, "correct horse", "admin")
	require.NoError(t, err)

	c := client.New(srv.URL)
	_, err = c.Login(context.Background(), email, "correct horse")
	require.NoError(t, err)
	return c, *user
}

func strPtr(s string) *string { return &s }

func TestClientRoundTrip(t *testing.T) {
	srv, app, db := startServer(t)
	c, user := login(t, srv, db, app, "owner@test.dev")
	ctx := context.Background()

	ch, err := c.CreateCharacterWithImages(ctx, &dto.CharacterRequest{
		Name: strPtr("Mira"),
		Role: strPtr("healer"),
	}, []models.ImageRef{{URL: "https://cdn.test/a.png"}})
	require.NoError(t, err)
	assert.Equal(t, user.ID, ch.UserID)
	assert.Len(t, ch.PictureCartoon, 1)

	slot := 1
	uploaded, err := c.Upload(ctx, client.UploadRequest{
		FileName:    "portrait.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(make([]byte, 512)),
		CharacterID: ch.ID,
		SlotIndex:   &slot,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, app.Store.Len())

	_, err = c.PutImages(ctx, ch.ID, []models.ImageRef{{URL: "https://cdn.test/a.png"}, {URL: uploaded.URL}})
	require.NoError(t, err)

	got, err := c.GetCharacter(ctx, ch.ID)
	require.NoError(t, err)
	assert.Len(t, got.PictureCartoon, 2)

	id := dto.FlexID(ch.ID)
	_, err = c.DeleteImage(ctx, dto.DeleteImageRequest{CharacterID: &id, URL: uploaded.URL, SlotIndex: &slot})
	require.NoError(t, err)
	assert.Zero(t, app.Store.Len())
}

func TestClientReportsAPIErrors(t *testing.T) {
	srv, app, db := startServer(t)
	owner, _ := login(t, srv, db, app, "owner@test.dev")
	other, _ := login(t, srv, db, app, "other@test.dev")
	ctx := context.Background()

	ch, err := owner.CreateCharacterWithImages(ctx, &dto.CharacterRequest{Name: strPtr("Mira"), Role: strPtr("healer")}, nil)
	require.NoError(t, err)

	_, err = other.PutImages(ctx, ch.ID, nil)
	assert.True(t, client.IsStatus(err, http.StatusForbidden))

	_, err = client.New(srv.URL).GetCharacter(ctx, ch.ID)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))

	var apiErr *client.APIError
	_, err = owner.PutImages(ctx, ch.ID, make([]models.ImageRef, 0))
	require.NoError(t, err)
	_, err = owner.CreateCharacterWithImages(ctx, &dto.CharacterRequest{Name: strPtr("x")}, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestSlotManagerAgainstServer(t *testing.T) {
	srv, app, db := startServer(t)
	c, _ := login(t, srv, db, app, "owner@test.dev")
	ctx := context.Background()

	m := slots.New(c)
	for i := 0; i < 2; i++ {
		_, err := m.Select(ctx, i, slots.File{
			Name:        "p.png",
			ContentType: "image/png",
			Size:        64,
			Body:        bytes.NewReader(make([]byte, 64)),
		})
		require.NoError(t, err)
	}
	_, err := m.SelectSingle(ctx, models.ImageTypeCharacter, slots.File{
		Name:        "full.jpg",
		ContentType: "image/jpeg",
		Size:        64,
		Body:        bytes.NewReader(make([]byte, 64)),
	})
	require.NoError(t, err)

	ch, err := c.CreateCharacterWithImages(ctx, &dto.CharacterRequest{Name: strPtr("Mira"), Role: strPtr("healer")}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Flush(ctx, ch.ID))

	got, err := c.GetCharacter(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Images(), got.PictureCartoon)
	require.NotNil(t, got.PictureCharacter)
	assert.Nil(t, got.PictureSelect)

	require.NoError(t, m.Remove(ctx, 0))
	got, err = c.GetCharacter(ctx, ch.ID)
	require.NoError(t, err)
	assert.Len(t, got.PictureCartoon, 1)
	assert.Equal(t, 2, app.Store.Len())
}
