package models

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageObjectPrefix starts every object name the upload endpoint creates.
const ImageObjectPrefix = "character_"

// ImageObject is the owner recorded in an uploaded object's name. Objects
// for an existing character carry its id, those uploaded before the
// character was created carry the uploading user.
type ImageObject struct {
	CharacterID uint
	UserID      uuid.UUID
}

// ImageObjectName builds
// character_{id}_{target}_{millis}_{suffix}.{ext} for an existing character
// and character_new_{user}_{target}_{millis}_{suffix}.{ext} otherwise.
func ImageObjectName(owner ImageObject, target string, at time.Time, suffix, ext string) string {
	prefix := ImageObjectPrefix + strconv.FormatUint(uint64(owner.CharacterID), 10)
	if owner.CharacterID == 0 {
		prefix = ImageObjectPrefix + "new_" + strings.ReplaceAll(owner.UserID.String(), "-", "")
	}
	return fmt.Sprintf("%s_%s_%d_%s.%s", prefix, target, at.UnixMilli(), suffix, ext)
}

// ParseImageObjectName reads the owner back out of an object name.
func ParseImageObjectName(name string) (ImageObject, bool) {
	rest, ok := strings.CutPrefix(name, ImageObjectPrefix)
	if !ok {
		return ImageObject{}, false
	}
	parts := strings.SplitN(rest, "_", 3)
	if len(parts) < 3 {
		return ImageObject{}, false
	}

	if parts[0] == "new" {
		user, err := uuid.Parse(parts[1])
		if err != nil || user == uuid.Nil {
			return ImageObject{}, false
		}
		return ImageObject{UserID: user}, true
	}

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return ImageObject{}, false
	}
	return ImageObject{CharacterID: uint(id)}, true
}

// ObjectNameFromURL returns the last path segment of a public object URL.
func ObjectNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	name := path.Base(raw)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
