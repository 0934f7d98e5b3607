package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/routes"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	*testutil.App
	app   *fiber.App
	db    *gorm.DB
	owner models.User
	other models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	a := testutil.NewApp(t, db)
	return &env{
		App:   a,
		app:   a.Fiber,
		db:    db,
		owner: testutil.CreateUser(t, db, "owner@test.dev"),
		other: testutil.CreateUser(t, db, "other@test.dev"),
	}
}

func (e *env) bearer(t *testing.T, user models.User) string {
	t.Helper()
	return "Bearer " + e.Token(t, user)
}

func (e *env) do(t *testing.T, method, path, auth string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCharacterImagesOwnership(t *testing.T) {
	e := newEnv(t)
	ch := testutil.CreateCharacter(t, e.db, e.owner.ID, "Mira")
	path := fmt.Sprintf("/api/characters/%d/images", ch.ID)

	resp := e.do(t, http.MethodGet, path, e.bearer(t, e.owner), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	images := decode[dto.ImagesResponse](t, resp)
	assert.Equal(t, ch.ID, images.CharacterID)
	assert.Equal(t, "Mira", images.CharacterName)
	assert.NotNil(t, images.Images)

	resp = e.do(t, http.MethodGet, path, e.bearer(t, e.other), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.ErrorResponse](t, resp).Error)

	resp = e.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/characters/9999/images", e.bearer(t, e.owner), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNonOwnerCannotMutate(t *testing.T) {
	e := newEnv(t)
	ch := testutil.CreateCharacter(t, e.db, e.owner.ID, "Mira")
	other := e.bearer(t, e.other)

	resp := e.do(t, http.MethodPut, fmt.Sprintf("/api/characters/%d", ch.ID), other, map[string]any{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodPut, fmt.Sprintf("/api/characters/%d/images", ch.ID), other, map[string]any{"images": []any{}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, fmt.Sprintf("/api/characters/%d", ch.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var stored models.Character
	require.NoError(t, e.db.First(&stored, ch.ID).Error)
	assert.Equal(t, "Mira", stored.Name)
}

func TestCharacterCRUD(t *testing.T) {
	e := newEnv(t)
	auth := e.bearer(t, e.owner)

	resp := e.do(t, http.MethodPost, "/api/characters", auth, map[string]any{
		"name":            "Mira",
		"role":            "healer",
		"picture_cartoon": []map[string]string{{"url": "https://cdn.test/a.png"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Character](t, resp)
	assert.Len(t, created.PictureCartoon, 1)

	resp = e.do(t, http.MethodPut, fmt.Sprintf("/api/characters/%d", created.ID), auth, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[models.Character](t, resp).IsActive)

	resp = e.do(t, http.MethodGet, "/api/characters?isActive=false", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[struct {
		Data       []models.Character `json:"data"`
		Pagination struct {
			TotalItems int64 `json:"totalItems"`
		} `json:"pagination"`
	}](t, resp)
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, 1, page.Pagination.TotalItems)

	resp = e.do(t, http.MethodDelete, fmt.Sprintf("/api/characters/%d", created.ID), auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.SuccessResponse](t, resp).Success)

	resp = e.do(t, http.MethodGet, fmt.Sprintf("/api/characters/%d", created.ID), auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutImagesValidation(t *testing.T) {
	e := newEnv(t)
	ch := testutil.CreateCharacter(t, e.db, e.owner.ID, "Mira")
	auth := e.bearer(t, e.owner)
	path := fmt.Sprintf("/api/characters/%d/images", ch.ID)

	six := make([]map[string]string, 6)
	for i := range six {
		six[i] = map[string]string{"url": fmt.Sprintf("https://cdn.test/%d.png", i)}
	}
	resp := e.do(t, http.MethodPut, path, auth, map[string]any{"images": six})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.ErrorResponse](t, resp).Error)

	resp = e.do(t, http.MethodPut, path, auth, map[string]any{"images": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPut, path, auth, map[string]any{"images": six[:5]})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.UpdateImagesResponse](t, resp).Character.PictureCartoon, 5)
}

func TestUserIDParamMustBeCaller(t *testing.T) {
	e := newEnv(t)
	auth := e.bearer(t, e.owner)

	resp := e.do(t, http.MethodGet, "/api/characters?userId="+e.other.ID.String(), auth, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/characters?userId="+e.owner.ID.String(), auth, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/charts/usage?userId="+e.other.ID.String(), auth, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListQueryErrors(t *testing.T) {
	e := newEnv(t)
	auth := e.bearer(t, e.owner)

	resp := e.do(t, http.MethodGet, "/api/logs?dateFrom=yesterday", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/logs?dateFrom=2026-03-05&dateTo=2026-03-01", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/charts/usage?period=yearly", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/charts/usage", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.ChartPoint](t, resp), 7)
}

func multipartUpload(t *testing.T, contentType string, size int, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="portrait.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x1}, size))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *env) upload(t *testing.T, auth, contentType string, size int, fields map[string]string) *http.Response {
	t.Helper()
	body, ct := multipartUpload(t, contentType, size, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/character-images", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", auth)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestUploadRoute(t *testing.T) {
	e := newEnv(t)
	ch := testutil.CreateCharacter(t, e.db, e.owner.ID, "Mira")
	id := fmt.Sprint(ch.ID)

	resp := e.upload(t, e.bearer(t, e.owner), "image/png", 1024, map[string]string{"characterId": id, "slotIndex": "2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	uploaded := decode[dto.UploadResponse](t, resp)
	assert.True(t, strings.HasPrefix(uploaded.FileName, "character_"+id+"_slot_2_"))
	assert.Equal(t, 1, e.Store.Len())

	resp = e.upload(t, e.bearer(t, e.other), "image/png", 1024, map[string]string{"characterId": id, "slotIndex": "2"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.upload(t, e.bearer(t, e.owner), "text/plain", 10, map[string]string{"slotIndex": "0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.upload(t, e.bearer(t, e.owner), "image/png", 10, map[string]string{"imageType": "picture_select"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ownerHex := strings.ReplaceAll(e.owner.ID.String(), "-", "")
	assert.True(t, strings.HasPrefix(decode[dto.UploadResponse](t, resp).FileName, "character_new_"+ownerHex+"_picture_select_"))

	resp = e.do(t, http.MethodDelete, "/api/upload/character-images", e.bearer(t, e.other), map[string]any{
		"characterId": id,
		"url":         uploaded.URL,
		"slotIndex":   2,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/api/upload/character-images", e.bearer(t, e.owner), map[string]any{
		"characterId": ch.ID,
		"url":         uploaded.URL,
		"slotIndex":   2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decode[dto.DeleteImageResponse](t, resp)
	assert.Equal(t, ch.ID, deleted.CharacterID.Uint())
	assert.Equal(t, 1, e.Store.Len())
}

func TestImageDeleteRejectsOtherUsersObjects(t *testing.T) {
	e := newEnv(t)
	ch := testutil.CreateCharacter(t, e.db, e.owner.ID, "Mira")
	theirs := testutil.CreateCharacter(t, e.db, e.other.ID, "Rook")
	ownerAuth, otherAuth := e.bearer(t, e.owner), e.bearer(t, e.other)

	resp := e.upload(t, ownerAuth, "image/png", 64, map[string]string{"characterId": fmt.Sprint(ch.ID), "slotIndex": "0"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slotted := decode[dto.UploadResponse](t, resp).URL

	resp = e.upload(t, ownerAuth, "image/png", 64, map[string]string{"imageType": "picture_character"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[dto.UploadResponse](t, resp).URL
	require.Equal(t, 2, e.Store.Len())

	t.Run("without characterId", func(t *testing.T) {
		resp := e.do(t, http.MethodDelete, "/api/upload/character-images", otherAuth, map[string]any{"url": slotted})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("own characterId with a foreign url", func(t *testing.T) {
		resp := e.do(t, http.MethodDelete, "/api/upload/character-images", otherAuth, map[string]any{
			"characterId": theirs.ID,
			"url":         slotted,
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("image uploaded before creation by someone else", func(t *testing.T) {
		resp := e.do(t, http.MethodDelete, "/api/upload/character-images", otherAuth, map[string]any{
			"characterId": theirs.ID,
			"url":         pending,
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
	assert.Equal(t, 2, e.Store.Len())

	resp = e.do(t, http.MethodDelete, "/api/upload/character-images", ownerAuth, map[string]any{"url": slotted})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = e.do(t, http.MethodDelete, "/api/upload/character-images", ownerAuth, map[string]any{"url": pending})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, e.Store.Len())
}

func TestMessagesRoutes(t *testing.T) {
	e := newEnv(t)
	auth := e.bearer(t, e.owner)

	resp := e.do(t, http.MethodPost, "/api/messages", auth, dto.MessageRequest{Messages: "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[models.Message](t, resp)

	resp = e.do(t, http.MethodPut, fmt.Sprintf("/api/messages/%d", msg.ID), auth, dto.MessageRequest{Messages: "hello again"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", msg.ID), auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.MessageResponse](t, resp).Message)

	resp = e.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", msg.ID), auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/api/messages/abc", auth, dto.MessageRequest{Messages: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginCookieSession(t *testing.T) {
	e := newEnv(t)
	auth := services.NewAuthService(e.db, e.Config, session.NewMemoryStore())
	_, err := auth.CreateUser(context.Background(), "admin@test.dev", "correct horse", "admin")
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "admin@test.dev", Password: "correct horse"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	withCookie := func(method, path string) *http.Response {
		req := httptest.NewRequest(method, path, nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: cookie.Value})
		resp, err := e.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp = withCookie(http.MethodGet, "/api/auth/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin@test.dev", decode[dto.UserResponse](t, resp).Email)

	resp = withCookie(http.MethodPost, "/api/auth/logout")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = withCookie(http.MethodGet, "/api/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "admin@test.dev", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDegradedMode(t *testing.T) {
	app := fiber.New()
	routes.SetupDegraded(app, handlers.NewHealthHandler(nil, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[dto.HealthResponse](t, resp)
	assert.Equal(t, "degraded", health.Status)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/characters", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.ErrorResponse](t, resp).Error)
}
