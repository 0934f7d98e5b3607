package middleware

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/gofiber/fiber/v2"
)

// IDExtractor finds the character id a request targets. present is false
// when the request does not name a character at all.
type IDExtractor func(c *fiber.Ctx) (id uint, present bool, err error)

// RequireOwner loads the targeted character and lets the request through
// only when the caller owns it. The character is left on the request for
// the handler. Requests that name no character pass unchecked.
func RequireOwner(guard *ownership.Guard, extract IDExtractor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := ownership.GetUserID(c)
		if err != nil {
			return apperr.Respond(c, err)
		}

		id, present, err := extract(c)
		if err != nil {
			return apperr.Respond(c, err)
		}
		if !present {
			return c.Next()
		}

		ch, err := guard.Character(c.UserContext(), caller, id)
		if err != nil {
			return apperr.Respond(c, err)
		}
		ownership.SetCharacter(c, ch)
		return c.Next()
	}
}

// ParamID reads the id from a route parameter.
func ParamID(name string) IDExtractor {
	return func(c *fiber.Ctx) (uint, bool, error) {
		id, err := parseID(c.Params(name))
		if err != nil {
			return 0, false, apperr.Invalid("invalid character id")
		}
		return id, true, nil
	}
}

// FormID reads an optional id from a multipart or urlencoded form field.
func FormID(name string) IDExtractor {
	return func(c *fiber.Ctx) (uint, bool, error) {
		raw := strings.TrimSpace(c.FormValue(name))
		if raw == "" || raw == "null" || raw == "undefined" {
			return 0, false, nil
		}
		id, err := parseID(raw)
		if err != nil {
			return 0, false, apperr.Invalid("invalid %s", name)
		}
		return id, true, nil
	}
}

// BodyID reads an optional id from a JSON body field, given as a number or a
// numeric string.
func BodyID(name string) IDExtractor {
	return func(c *fiber.Ctx) (uint, bool, error) {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return 0, false, apperr.Invalid("invalid request body")
		}
		raw, ok := body[name]
		if !ok {
			return 0, false, nil
		}
		var id dto.FlexID
		if err := json.Unmarshal(raw, &id); err != nil {
			return 0, false, apperr.Invalid("invalid %s", name)
		}
		if id == 0 {
			return 0, false, nil
		}
		return id.Uint(), true, nil
	}
}

// ImageCharacterID targets the character named by the JSON field, or failing
// that the character recorded in the name of the object at urlField. Objects
// uploaded before their character existed name no character.
func ImageCharacterID(idField, urlField string) IDExtractor {
	fromBody := BodyID(idField)
	return func(c *fiber.Ctx) (uint, bool, error) {
		id, present, err := fromBody(c)
		if err != nil || present {
			return id, present, err
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return 0, false, apperr.Invalid("invalid request body")
		}
		var url string
		if raw, ok := body[urlField]; ok {
			_ = json.Unmarshal(raw, &url)
		}
		owner, ok := models.ParseImageObjectName(models.ObjectNameFromURL(url))
		if !ok || owner.CharacterID == 0 {
			return 0, false, nil
		}
		return owner.CharacterID, true, nil
	}
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(n), nil
}
