// Package slots tracks the image slots of one character being edited: five
// cartoon slots and the two single-image fields. Each slot moves
// Empty -> Selecting -> Uploading -> Occupied and back to Empty on removal.
//
// For a character that already exists every change is persisted right away.
// For a new character the state accumulates until Flush is called with the
// id the server assigned.
package slots

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/client"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// MaxFileSize matches the server's upload limit.
const MaxFileSize = 5 << 20

var (
	ErrSlotBusy      = errors.New("slot is busy")
	ErrInvalidSlot   = errors.New("invalid slot")
	ErrInvalidFile   = errors.New("invalid file")
	ErrImagesPending = errors.New("images are not saved yet")
)

type State int

const (
	Empty State = iota
	Selecting
	Uploading
	Occupied
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Uploading:
		return "uploading"
	case Occupied:
		return "occupied"
	default:
		return "empty"
	}
}

// File is an image picked by the user.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// API is the part of the dashboard client the manager needs.
type API interface {
	Upload(ctx context.Context, req client.UploadRequest) (*dto.UploadResponse, error)
	DeleteImage(ctx context.Context, req dto.DeleteImageRequest) (*dto.DeleteImageResponse, error)
	PutImages(ctx context.Context, characterID uint, images []models.ImageRef) (*dto.UpdateImagesResponse, error)
	PutSingleImages(ctx context.Context, characterID uint, req dto.SingleImagesRequest) (*models.Character, error)
}

// Preview is a local resource shown while a file uploads. It is released
// once the upload settles either way.
type Preview interface {
	io.Closer
}

type slot struct {
	mu    sync.Mutex
	state State
	url   string
}

type Manager struct {
	api        API
	newPreview func(data []byte) Preview
	retries    uint64
	retryWait  time.Duration

	cartoon [models.MaxCartoonImages]*slot
	single  map[string]*slot

	mu          sync.Mutex
	characterID uint
	pending     bool

	// persistMu orders saves: each snapshot is taken and sent while held,
	// so the last save to finish carries the newest state.
	persistMu sync.Mutex

	previews atomic.Int64
}

type Option func(*Manager)

// WithRetries sets how many times Flush retries a failed save.
func WithRetries(n uint64, wait time.Duration) Option {
	return func(m *Manager) {
		m.retries = n
		m.retryWait = wait
	}
}

// WithPreview replaces the default in-memory preview.
func WithPreview(fn func(data []byte) Preview) Option {
	return func(m *Manager) { m.newPreview = fn }
}

// New creates a manager for a character that does not exist yet.
func New(api API, opts ...Option) *Manager {
	m := &Manager{
		api:       api,
		retries:   3,
		retryWait: 500 * time.Millisecond,
		single: map[string]*slot{
			models.ImageTypeSelect:    {},
			models.ImageTypeCharacter: {},
		},
	}
	for i := range m.cartoon {
		m.cartoon[i] = &slot{}
	}
	m.newPreview = func(data []byte) Preview { return &memoryPreview{data: data} }
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ForCharacter creates a manager seeded with an existing character's images.
func ForCharacter(api API, ch *models.Character, opts ...Option) *Manager {
	m := New(api, opts...)
	m.characterID = ch.ID
	for i, ref := range ch.Images() {
		if i >= models.MaxCartoonImages {
			break
		}
		m.cartoon[i].url = ref.URL
		m.cartoon[i].state = Occupied
	}
	if ch.PictureSelect != nil {
		m.single[models.ImageTypeSelect].occupy(*ch.PictureSelect)
	}
	if ch.PictureCharacter != nil {
		m.single[models.ImageTypeCharacter].occupy(*ch.PictureCharacter)
	}
	return m
}

func (s *slot) occupy(url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	s.url = url
	s.state = Occupied
}

// Select uploads f into cartoon slot index and returns its url.
func (m *Manager) Select(ctx context.Context, index int, f File) (string, error) {
	s, err := m.cartoonSlot(index)
	if err != nil {
		return "", err
	}
	return m.selectInto(ctx, s, f, client.UploadRequest{SlotIndex: &index})
}

// SelectSingle uploads f into picture_select or picture_character.
func (m *Manager) SelectSingle(ctx context.Context, imageType string, f File) (string, error) {
	s, err := m.singleSlot(imageType)
	if err != nil {
		return "", err
	}
	return m.selectInto(ctx, s, f, client.UploadRequest{ImageType: imageType})
}

// SelectMany uploads several cartoon slots concurrently. Slots that fail are
// left empty; the first error is returned.
func (m *Manager) SelectMany(ctx context.Context, files map[int]File) error {
	g, ctx := errgroup.WithContext(ctx)
	for index, f := range files {
		index, f := index, f
		g.Go(func() error {
			_, err := m.Select(ctx, index, f)
			return err
		})
	}
	return g.Wait()
}

func (m *Manager) selectInto(ctx context.Context, s *slot, f File, req client.UploadRequest) (string, error) {
	if err := validateFile(f); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.state == Selecting || s.state == Uploading {
		s.mu.Unlock()
		return "", ErrSlotBusy
	}
	previous := s.state
	previousURL := s.url
	s.state = Selecting
	s.mu.Unlock()

	data, err := io.ReadAll(io.LimitReader(f.Body, MaxFileSize+1))
	if err == nil && len(data) > MaxFileSize {
		err = fmt.Errorf("%w: file must be 5MB or smaller", ErrInvalidFile)
	}
	if err != nil {
		s.restore(previous, previousURL)
		return "", err
	}

	preview := m.newPreview(data)
	m.previews.Add(1)
	defer m.release(preview)

	s.mu.Lock()
	s.state = Uploading
	s.mu.Unlock()

	req.FileName = f.Name
	req.ContentType = f.ContentType
	req.Body = bytes.NewReader(data)
	req.CharacterID = m.CharacterID()

	resp, err := m.api.Upload(ctx, req)
	if err != nil {
		s.restore(Empty, "")
		return "", err
	}

	s.mu.Lock()
	s.state = Occupied
	s.url = resp.URL
	s.mu.Unlock()

	if err := m.persistChange(ctx, req.ImageType); err != nil {
		return resp.URL, err
	}
	return resp.URL, nil
}

func (s *slot) restore(state State, url string) {
	s.mu.Lock()
	s.state = state
	s.url = url
	s.mu.Unlock()
}

func (m *Manager) release(p Preview) {
	if err := p.Close(); err != nil {
		slog.Warn("failed to release image preview", "error", err)
	}
	m.previews.Add(-1)
}

// Remove empties cartoon slot index. The blob is deleted when the character
// exists; a failed delete is logged and the slot is emptied anyway.
func (m *Manager) Remove(ctx context.Context, index int) error {
	s, err := m.cartoonSlot(index)
	if err != nil {
		return err
	}
	return m.removeFrom(ctx, s, dto.DeleteImageRequest{SlotIndex: &index}, "")
}

func (m *Manager) RemoveSingle(ctx context.Context, imageType string) error {
	s, err := m.singleSlot(imageType)
	if err != nil {
		return err
	}
	return m.removeFrom(ctx, s, dto.DeleteImageRequest{ImageType: imageType}, imageType)
}

func (m *Manager) removeFrom(ctx context.Context, s *slot, req dto.DeleteImageRequest, imageType string) error {
	s.mu.Lock()
	if s.state == Selecting || s.state == Uploading {
		s.mu.Unlock()
		return ErrSlotBusy
	}
	url := s.url
	s.state = Empty
	s.url = ""
	s.mu.Unlock()

	id := m.CharacterID()
	if url == "" || id == 0 {
		return nil
	}

	flexID := dto.FlexID(id)
	req.CharacterID = &flexID
	req.URL = url
	if _, err := m.api.DeleteImage(ctx, req); err != nil {
		slog.WarnContext(ctx, "failed to delete image", "url", url, "error", err)
	}
	return m.persistChange(ctx, imageType)
}

// persistChange saves the slot group that changed when the character exists.
func (m *Manager) persistChange(ctx context.Context, imageType string) error {
	id := m.CharacterID()
	if id == 0 {
		return nil
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	var err error
	if imageType == "" {
		_, err = m.api.PutImages(ctx, id, m.Images())
	} else {
		_, err = m.api.PutSingleImages(ctx, id, m.singleRequest(imageType))
	}
	if err != nil {
		m.setPending(true)
		return fmt.Errorf("%w: %v", ErrImagesPending, err)
	}
	return nil
}

// Flush saves every slot for characterID, retrying with backoff. After the
// last failed attempt the manager is marked pending and ErrImagesPending is
// returned; Flush can be called again later.
func (m *Manager) Flush(ctx context.Context, characterID uint) error {
	m.mu.Lock()
	m.characterID = characterID
	m.mu.Unlock()

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	single := dto.SingleImagesRequest{
		PictureSelect:    m.singleURL(models.ImageTypeSelect),
		PictureCharacter: m.singleURL(models.ImageTypeCharacter),
	}
	images := m.Images()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.retryWait), m.retries),
		ctx,
	)
	err := backoff.Retry(func() error {
		if _, err := m.api.PutImages(ctx, characterID, images); err != nil {
			return retryable(err)
		}
		if _, err := m.api.PutSingleImages(ctx, characterID, single); err != nil {
			return retryable(err)
		}
		return nil
	}, policy)
	if err != nil {
		m.setPending(true)
		slog.WarnContext(ctx, "character images not saved", "character_id", characterID, "error", err)
		return fmt.Errorf("%w: %v", ErrImagesPending, err)
	}

	m.setPending(false)
	return nil
}

// retryable stops retrying on answers that will not change, such as 400 or 403.
func retryable(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return backoff.Permanent(err)
	}
	return err
}

// Images returns the occupied cartoon slots in slot order.
func (m *Manager) Images() []models.ImageRef {
	refs := make([]models.ImageRef, 0, models.MaxCartoonImages)
	for _, s := range m.cartoon {
		s.mu.Lock()
		if s.state == Occupied && s.url != "" {
			refs = append(refs, models.ImageRef{URL: s.url})
		}
		s.mu.Unlock()
	}
	return models.CleanImageRefs(refs)
}

func (m *Manager) State(index int) State {
	s, err := m.cartoonSlot(index)
	if err != nil {
		return Empty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (m *Manager) SingleState(imageType string) State {
	s, err := m.singleSlot(imageType)
	if err != nil {
		return Empty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (m *Manager) CharacterID() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.characterID
}

// Pending reports whether the last save failed and Flush should be retried.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// OpenPreviews is the number of previews not yet released.
func (m *Manager) OpenPreviews() int {
	return int(m.previews.Load())
}

func (m *Manager) setPending(v bool) {
	m.mu.Lock()
	m.pending = v
	m.mu.Unlock()
}

// singleRequest carries only the changed field; an empty string clears it.
func (m *Manager) singleRequest(imageType string) dto.SingleImagesRequest {
	url := ""
	if u := m.singleURL(imageType); u != nil {
		url = *u
	}
	if imageType == models.ImageTypeSelect {
		return dto.SingleImagesRequest{PictureSelect: &url}
	}
	return dto.SingleImagesRequest{PictureCharacter: &url}
}

func (m *Manager) singleURL(imageType string) *string {
	s := m.single[imageType]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Occupied || s.url == "" {
		empty := ""
		return &empty
	}
	url := s.url
	return &url
}

func (m *Manager) cartoonSlot(index int) (*slot, error) {
	if index < 0 || index >= models.MaxCartoonImages {
		return nil, fmt.Errorf("%w: cartoon slot %d", ErrInvalidSlot, index)
	}
	return m.cartoon[index], nil
}

func (m *Manager) singleSlot(imageType string) (*slot, error) {
	s, ok := m.single[imageType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, imageType)
	}
	return s, nil
}

func validateFile(f File) error {
	if !strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
		return fmt.Errorf("%w: only image files can be uploaded", ErrInvalidFile)
	}
	if f.Size > MaxFileSize {
		return fmt.Errorf("%w: file must be 5MB or smaller", ErrInvalidFile)
	}
	if f.Body == nil {
		return fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	return nil
}

type memoryPreview struct {
	data []byte
}

func (p *memoryPreview) Close() error {
	p.data = nil
	return nil
}
