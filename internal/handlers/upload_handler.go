package handlers

import (
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UploadHandler struct {
	uploads *services.UploadService
}

func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload stores one image from the multipart field "file". characterId is
// optional; without it the object is named for a not-yet-created character.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	caller, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	file, err := c.FormFile("file")
	if err != nil {
		return apperr.Respond(c, apperr.Invalid("file is required"))
	}

	in := &services.UploadInput{
		FileName:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		OwnerID:     caller,
		SlotIndex:   c.FormValue("slotIndex"),
		ImageType:   c.FormValue("imageType"),
	}
	if ch := ownership.CharacterFrom(c); ch != nil {
		in.CharacterID = ch.ID
	}

	body, err := file.Open()
	if err != nil {
		return apperr.Respond(c, apperr.Invalid("could not read file"))
	}
	defer body.Close()
	in.Body = body

	resp, err := h.uploads.Upload(c.UserContext(), in)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(resp)
}

// Delete removes an uploaded image. The object must belong to the verified
// character, or to the caller when it was uploaded before creation.
func (h *UploadHandler) Delete(c *fiber.Ctx) error {
	caller, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	var req dto.DeleteImageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	resp, err := h.uploads.Delete(c.UserContext(), caller, ownership.CharacterFrom(c), &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(resp)
}
