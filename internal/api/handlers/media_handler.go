package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adnanh27/postbridge/internal/service"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid multipart form",
		})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no files attached",
		})
	}

	assets, err := h.s.Upload(c.Context(), orgID, files)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"assets": assets,
	})
}

func (h *MediaHandler) ListMedia(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	assets, err := h.s.List(c.Context(), orgID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"assets": assets,
	})
}
