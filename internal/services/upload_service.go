package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/storage"
	"github.com/google/uuid"
)

// MaxUploadSize is the largest accepted image.
const MaxUploadSize = 5 << 20

// UploadInput is one image file plus the slot it is meant for.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	CharacterID uint
	OwnerID     uuid.UUID
	SlotIndex   string
	ImageType   string
}

type UploadService struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewUploadService(store storage.ObjectStore) *UploadService {
	return &UploadService{store: store, now: time.Now}
}

// ValidateUpload checks type, size and target slot before anything is stored.
// It returns the parsed slot index for cartoon uploads.
func ValidateUpload(in *UploadInput) (*int, error) {
	if !strings.HasPrefix(strings.ToLower(in.ContentType), "image/") {
		return nil, apperr.Invalid("only image files can be uploaded")
	}
	if in.Size > MaxUploadSize {
		return nil, apperr.Invalid("file must be 5MB or smaller")
	}
	if in.ImageType != "" {
		if !models.IsSingleImageType(in.ImageType) {
			return nil, apperr.Invalid("invalid imageType: %s", in.ImageType)
		}
		return nil, nil
	}
	slot, err := strconv.Atoi(strings.TrimSpace(in.SlotIndex))
	if err != nil || slot < 0 || slot >= models.MaxCartoonImages {
		return nil, apperr.Invalid("slotIndex must be between 0 and %d", models.MaxCartoonImages-1)
	}
	return &slot, nil
}

func (s *UploadService) Upload(ctx context.Context, in *UploadInput) (*dto.UploadResponse, error) {
	slot, err := ValidateUpload(in)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if in.CharacterID == 0 && in.OwnerID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	name := s.objectName(in, slot)

	if err := s.store.Put(ctx, name, in.Body, in.Size, in.ContentType); err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, apperr.Store("failed to upload file", err)
	}
	metrics.UploadsTotal.WithLabelValues("stored").Inc()

	return &dto.UploadResponse{
		URL:       s.store.PublicURL(name),
		FileName:  name,
		Message:   "image uploaded",
		SlotIndex: slot,
		ImageType: in.ImageType,
	}, nil
}

// Delete removes the blob named by the last path segment of req.URL. Only
// objects created by Upload can be removed, and only by their owner: an
// object named for a character needs that character verified on the request,
// one uploaded before creation needs the caller to be its uploader.
func (s *UploadService) Delete(ctx context.Context, caller uuid.UUID, ch *models.Character, req *dto.DeleteImageRequest) (*dto.DeleteImageResponse, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, apperr.Invalid("url is required")
	}
	name := ObjectNameFromURL(req.URL)
	owner, ok := models.ParseImageObjectName(name)
	if !ok {
		return nil, apperr.Invalid("invalid image url")
	}
	if err := checkImageOwner(owner, caller, ch); err != nil {
		return nil, err
	}

	if err := s.store.Remove(ctx, name); err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.Store("failed to delete file", err)
		}
		slog.WarnContext(ctx, "image already removed", "file", name)
	}

	return &dto.DeleteImageResponse{
		Message:     "image deleted",
		CharacterID: req.CharacterID,
		SlotIndex:   req.SlotIndex,
		ImageType:   req.ImageType,
	}, nil
}

func checkImageOwner(owner models.ImageObject, caller uuid.UUID, ch *models.Character) error {
	if owner.CharacterID != 0 {
		if ch == nil || ch.ID != owner.CharacterID {
			return apperr.New(apperr.ErrForbidden, "image does not belong to this character")
		}
		return nil
	}
	if caller == uuid.Nil || owner.UserID != caller {
		return apperr.New(apperr.ErrForbidden, "image was uploaded by another user")
	}
	return nil
}

// ObjectNameFromURL returns the last path segment of a public object URL.
func ObjectNameFromURL(raw string) string {
	return models.ObjectNameFromURL(raw)
}

func (s *UploadService) objectName(in *UploadInput, slot *int) string {
	target := in.ImageType
	if slot != nil {
		target = fmt.Sprintf("slot_%d", *slot)
	}
	owner := models.ImageObject{CharacterID: in.CharacterID, UserID: in.OwnerID}
	return models.ImageObjectName(owner, target, s.now(), randomSuffix(), extension(in.FileName))
}

func extension(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" || strings.Trim(ext, "abcdefghijklmnopqrstuvwxyz0123456789") != "" {
		return "jpg"
	}
	return ext
}

// randomSuffix is the first 11 hex digits of a random uuid.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:11]
}
