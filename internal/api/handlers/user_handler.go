package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adnanh27/postbridge/internal/service"
)

type UserHandler struct {
	s service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{s: service}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	user, err := h.s.GetUserInfo(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}
