package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/pkg/utils"
)

const loginStateCookie = "login_state"

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.GenerateNonce()
	if err != nil {
		return fail(c, err)
	}

	authURL, err := h.s.LoginURL(state)
	if err != nil {
		return fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     loginStateCookie,
		Value:    state,
		HTTPOnly: true,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(authURL)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	if state == "" || state != c.Cookies(loginStateCookie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "login state mismatch",
		})
	}
	c.Cookie(&fiber.Cookie{
		Name:   loginStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	userID, orgID, err := h.s.LoginCallback(c.Context(), code)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), fmt.Sprintf("%d", orgID), 24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.cfg.Environment == "production",
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
