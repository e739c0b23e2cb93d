package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	orgID := GetOrgID(c)

	var creation transfer.PostCreation
	if err := c.BodyParser(&creation); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	post, err := h.s.Create(c.Context(), userID, orgID, &creation)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post": post,
	})
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	postID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid post id",
		})
	}

	post, err := h.s.Get(c.Context(), orgID, int64(postID))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"post": post,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	posts, err := h.s.List(c.Context(), orgID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": posts,
	})
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	var body struct {
		PostID        int64  `json:"post_id"`
		ScheduledTime string `json:"scheduled_time"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.s.Reschedule(c.Context(), orgID, body.PostID, body.ScheduledTime); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	var body struct {
		PostID int64 `json:"post_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.s.Cancel(c.Context(), orgID, body.PostID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	var body struct {
		PostID int64 `json:"post_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.s.Remove(c.Context(), orgID, body.PostID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
