package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
)

// ParseImageArray validates a picture_cartoon payload. The payload must be a
// JSON array; entries without a non-blank string url are dropped, and more
// than MaxCartoonImages remaining entries is an invalid request.
func ParseImageArray(raw json.RawMessage) ([]models.ImageRef, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, apperr.Invalid("images must be an array")
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, apperr.Invalid("images must be an array")
	}

	refs := make([]models.ImageRef, 0, len(entries))
	for _, entry := range entries {
		var obj map[string]interface{}
		if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
			continue
		}
		url, ok := obj["url"].(string)
		if !ok {
			continue
		}
		refs = append(refs, models.ImageRef{URL: url})
	}

	refs = models.CleanImageRefs(refs)
	if len(refs) > models.MaxCartoonImages {
		return nil, apperr.Invalid("at most %d images are allowed", models.MaxCartoonImages)
	}
	return refs, nil
}

// optionalURL turns an empty or blank string into a cleared field.
func optionalURL(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
