// Package client is a Go client for the dashboard API, used by the image
// slot manager and by tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar is what keeps the
// session cookie between calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token instead of relying on the session cookie.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login opens a session; later calls reuse the session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadRequest is one image for a cartoon slot (SlotIndex) or a
// single-image field (ImageType). CharacterID is zero for a character that
// does not exist yet.
type UploadRequest struct {
	FileName    string
	ContentType string
	Body        io.Reader
	CharacterID uint
	SlotIndex   *int
	ImageType   string
}

func (c *Client) Upload(ctx context.Context, req UploadRequest) (*dto.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(req.FileName)))
	header.Set("Content-Type", req.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if req.CharacterID != 0 {
		if err := mw.WriteField("characterId", strconv.FormatUint(uint64(req.CharacterID), 10)); err != nil {
			return nil, err
		}
	}
	if req.SlotIndex != nil {
		if err := mw.WriteField("slotIndex", strconv.Itoa(*req.SlotIndex)); err != nil {
			return nil, err
		}
	}
	if req.ImageType != "" {
		if err := mw.WriteField("imageType", req.ImageType); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/upload/character-images", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out dto.UploadResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteImage(ctx context.Context, req dto.DeleteImageRequest) (*dto.DeleteImageResponse, error) {
	var out dto.DeleteImageResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/upload/character-images", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutImages replaces the character's cartoon image array.
func (c *Client) PutImages(ctx context.Context, characterID uint, images []models.ImageRef) (*dto.UpdateImagesResponse, error) {
	if images == nil {
		images = []models.ImageRef{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}

	var out dto.UpdateImagesResponse
	path := fmt.Sprintf("/api/characters/%d/images", characterID)
	if err := c.doJSON(ctx, http.MethodPut, path, dto.ImagesRequest{Images: raw}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutSingleImages(ctx context.Context, characterID uint, req dto.SingleImagesRequest) (*models.Character, error) {
	var out models.Character
	path := fmt.Sprintf("/api/characters/%d/single-images", characterID)
	if err := c.doJSON(ctx, http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCharacterWithImages creates the character and its images in one
// request, so either both exist or neither does.
func (c *Client) CreateCharacterWithImages(ctx context.Context, req *dto.CharacterRequest, images []models.ImageRef) (*models.Character, error) {
	body := *req
	if len(images) > 0 {
		raw, err := json.Marshal(images)
		if err != nil {
			return nil, err
		}
		body.PictureCartoon = raw
	}

	var out models.Character
	if err := c.doJSON(ctx, http.MethodPost, "/api/characters", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCharacter(ctx context.Context, id uint) (*models.Character, error) {
	var out models.Character
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/characters/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dashboard api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
