package slots_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/client"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/slots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeAPI struct {
	mu        sync.Mutex
	uploads   int
	deletes   []dto.DeleteImageRequest
	puts      [][]models.ImageRef
	singles   []dto.SingleImagesRequest
	uploadErr error
	deleteErr error
	putErrs   []error
	block     chan struct{}
	started   chan struct{}
}

func (f *fakeAPI) Upload(ctx context.Context, req client.UploadRequest) (*dto.UploadResponse, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	target := req.ImageType
	if req.SlotIndex != nil {
		target = fmt.Sprintf("slot_%d", *req.SlotIndex)
	}
	return &dto.UploadResponse{URL: fmt.Sprintf("https://cdn.test/character_%d_%s_%d.png", req.CharacterID, target, f.uploads)}, nil
}

func (f *fakeAPI) DeleteImage(ctx context.Context, req dto.DeleteImageRequest) (*dto.DeleteImageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, req)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &dto.DeleteImageResponse{Message: "image deleted"}, nil
}

func (f *fakeAPI) PutImages(ctx context.Context, characterID uint, images []models.ImageRef) (*dto.UpdateImagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, images)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dto.UpdateImagesResponse{Success: true}, nil
}

func (f *fakeAPI) PutSingleImages(ctx context.Context, characterID uint, req dto.SingleImagesRequest) (*models.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, req)
	return &models.Character{ID: characterID}, nil
}

func (f *fakeAPI) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func png(size int) slots.File {
	return slots.File{
		Name:        "portrait.png",
		ContentType: "image/png",
		Size:        int64(size),
		Body:        bytes.NewReader(make([]byte, size)),
	}
}

func fastRetries() slots.Option {
	return slots.WithRetries(3, time.Millisecond)
}

func TestSelectValidatesBeforeUpload(t *testing.T) {
	api := &fakeAPI{}
	m := slots.New(api)

	_, err := m.Select(context.Background(), 0, slots.File{Name: "a.txt", ContentType: "text/plain", Size: 3, Body: bytes.NewReader([]byte("abc"))})
	assert.ErrorIs(t, err, slots.ErrInvalidFile)

	_, err = m.Select(context.Background(), 0, png(6<<20))
	assert.ErrorIs(t, err, slots.ErrInvalidFile)

	_, err = m.Select(context.Background(), 5, png(10))
	assert.ErrorIs(t, err, slots.ErrInvalidSlot)

	assert.Zero(t, api.uploads)
	assert.Equal(t, slots.Empty, m.State(0))
}

func TestSelectForNewCharacterStaysLocal(t *testing.T) {
	api := &fakeAPI{}
	m := slots.New(api)

	url, err := m.Select(context.Background(), 1, png(4<<20))
	require.NoError(t, err)

	assert.Equal(t, slots.Occupied, m.State(1))
	assert.Equal(t, []models.ImageRef{{URL: url}}, m.Images())
	assert.Zero(t, api.putCount())
	assert.Zero(t, m.OpenPreviews())
}

func TestUploadFailureEmptiesSlot(t *testing.T) {
	api := &fakeAPI{uploadErr: errors.New("connection reset")}
	m := slots.New(api)

	_, err := m.Select(context.Background(), 0, png(10))
	require.Error(t, err)
	assert.Equal(t, slots.Empty, m.State(0))
	assert.Zero(t, m.OpenPreviews())
	assert.Empty(t, m.Images())
}

func TestOneUploadPerSlot(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), started: make(chan struct{}, 2)}
	m := slots.New(api)

	done := make(chan error, 1)
	go func() {
		_, err := m.Select(context.Background(), 0, png(10))
		done <- err
	}()
	<-api.started
	assert.Equal(t, slots.Uploading, m.State(0))
	assert.Equal(t, 1, m.OpenPreviews())

	_, err := m.Select(context.Background(), 0, png(10))
	assert.ErrorIs(t, err, slots.ErrSlotBusy)
	assert.ErrorIs(t, m.Remove(context.Background(), 0), slots.ErrSlotBusy)

	other := make(chan error, 1)
	go func() {
		_, err := m.Select(context.Background(), 1, png(10))
		other <- err
	}()
	<-api.started
	assert.Equal(t, slots.Uploading, m.State(1))

	close(api.block)
	require.NoError(t, <-done)
	require.NoError(t, <-other)
	assert.Len(t, m.Images(), 2)
}

func TestExistingCharacterPersistsEachChange(t *testing.T) {
	api := &fakeAPI{}
	ch := &models.Character{
		ID:             7,
		PictureCartoon: []models.ImageRef{{URL: "https://cdn.test/character_7_slot_0_old.png"}},
	}
	m := slots.ForCharacter(api, ch)
	require.Equal(t, slots.Occupied, m.State(0))

	url, err := m.Select(context.Background(), 2, png(10))
	require.NoError(t, err)
	require.Len(t, api.puts, 1)
	assert.Equal(t, []models.ImageRef{{URL: "https://cdn.test/character_7_slot_0_old.png"}, {URL: url}}, api.puts[0])

	_, err = m.SelectSingle(context.Background(), models.ImageTypeSelect, png(10))
	require.NoError(t, err)
	require.Len(t, api.singles, 1)
	require.NotNil(t, api.singles[0].PictureSelect)
	assert.Nil(t, api.singles[0].PictureCharacter)

	require.NoError(t, m.Remove(context.Background(), 0))
	require.Len(t, api.deletes, 1)
	assert.Equal(t, uint(7), api.deletes[0].CharacterID.Uint())
	require.Len(t, api.puts, 2)
	assert.Equal(t, []models.ImageRef{{URL: url}}, api.puts[1])
}

func TestRemoveClearsLocalStateWhenDeleteFails(t *testing.T) {
	api := &fakeAPI{deleteErr: &client.APIError{Status: http.StatusInternalServerError, Message: "boom"}}
	m := slots.ForCharacter(api, &models.Character{ID: 3, PictureCartoon: []models.ImageRef{{URL: "https://cdn.test/a.png"}}})

	require.NoError(t, m.Remove(context.Background(), 0))
	assert.Equal(t, slots.Empty, m.State(0))
	assert.Empty(t, m.Images())
	assert.Equal(t, 1, api.putCount())
}

func TestRemoveOnNewCharacterSkipsNetwork(t *testing.T) {
	api := &fakeAPI{}
	m := slots.New(api)

	_, err := m.Select(context.Background(), 0, png(10))
	require.NoError(t, err)
	require.NoError(t, m.Remove(context.Background(), 0))

	assert.Empty(t, api.deletes)
	assert.Equal(t, slots.Empty, m.State(0))
}

func TestFlushRetries(t *testing.T) {
	api := &fakeAPI{putErrs: []error{errors.New("timeout"), errors.New("timeout")}}
	m := slots.New(api, fastRetries())
	_, err := m.Select(context.Background(), 0, png(10))
	require.NoError(t, err)

	require.NoError(t, m.Flush(context.Background(), 42))
	assert.False(t, m.Pending())
	assert.Equal(t, uint(42), m.CharacterID())
	assert.Equal(t, 3, api.putCount())
	require.Len(t, api.singles, 1)
	assert.Equal(t, "", *api.singles[0].PictureSelect)
}

func TestFlushMarksPending(t *testing.T) {
	fail := errors.New("unavailable")
	api := &fakeAPI{putErrs: []error{fail, fail, fail, fail}}
	m := slots.New(api, fastRetries())
	_, err := m.Select(context.Background(), 0, png(10))
	require.NoError(t, err)

	err = m.Flush(context.Background(), 42)
	assert.ErrorIs(t, err, slots.ErrImagesPending)
	assert.True(t, m.Pending())
	assert.Equal(t, 4, api.putCount())

	require.NoError(t, m.Flush(context.Background(), 42))
	assert.False(t, m.Pending())
}

func TestFlushDoesNotRetryClientErrors(t *testing.T) {
	api := &fakeAPI{putErrs: []error{&client.APIError{Status: http.StatusForbidden, Message: "permission denied"}}}
	m := slots.New(api, fastRetries())

	err := m.Flush(context.Background(), 42)
	assert.ErrorIs(t, err, slots.ErrImagesPending)
	assert.Equal(t, 1, api.putCount())
}

func TestSelectMany(t *testing.T) {
	api := &fakeAPI{}
	m := slots.New(api)

	err := m.SelectMany(context.Background(), map[int]slots.File{0: png(10), 3: png(10), 4: png(10)})
	require.NoError(t, err)
	assert.Len(t, m.Images(), 3)
	for _, i := range []int{0, 3, 4} {
		assert.Equal(t, slots.Occupied, m.State(i))
	}
	assert.Zero(t, m.OpenPreviews())
}

// slowFirstSave holds the first image save long enough for a later one to
// overtake it, and remembers the array of the save that finished last.
type slowFirstSave struct {
	*fakeAPI
	calls atomic.Int32
	first chan struct{}

	mu   sync.Mutex
	last []models.ImageRef
}

func (s *slowFirstSave) PutImages(ctx context.Context, characterID uint, images []models.ImageRef) (*dto.UpdateImagesResponse, error) {
	if s.calls.Add(1) == 1 {
		close(s.first)
		time.Sleep(100 * time.Millisecond)
	}
	resp, err := s.fakeAPI.PutImages(ctx, characterID, images)
	s.mu.Lock()
	s.last = images
	s.mu.Unlock()
	return resp, err
}

func TestConcurrentSavesKeepNewestImages(t *testing.T) {
	api := &slowFirstSave{fakeAPI: &fakeAPI{}, first: make(chan struct{})}
	m := slots.ForCharacter(api, &models.Character{ID: 7})
	ctx := context.Background()

	var g errgroup.Group
	g.Go(func() error {
		_, err := m.Select(ctx, 0, png(10))
		return err
	})
	<-api.first
	g.Go(func() error {
		_, err := m.Select(ctx, 1, png(10))
		return err
	})
	require.NoError(t, g.Wait())

	require.Len(t, m.Images(), 2)
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, m.Images(), api.last)
}
