package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/service"
)

type PlatformHandler struct {
	s   service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, service service.PlatformService) *PlatformHandler {
	return &PlatformHandler{s: service, cfg: cfg}
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	platform := c.Params("platform")
	userID := GetUserID(c)
	orgID := GetOrgID(c)

	authURL, err := h.s.GetAuthURL(c.Context(), platform, userID, orgID)
	if err != nil {
		return fail(c, err)
	}

	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")
	userID := GetUserID(c)
	orgID := GetOrgID(c)

	if errMsg := c.Query("error"); errMsg != "" {
		return c.Redirect(fmt.Sprintf("%s/accounts?error=%s", h.cfg.FrontendURL, errMsg))
	}

	code := c.Query("code")
	state := c.Query("state")

	_, err := h.s.HandleOAuthCallback(c.Context(), platform, code, state, userID, orgID)
	if err != nil {
		return fail(c, err)
	}

	return c.Redirect(fmt.Sprintf("%s/accounts", h.cfg.FrontendURL))
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	accounts, err := h.s.List(c.Context(), orgID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"accounts": accounts,
	})
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	orgID := GetOrgID(c)

	var body struct {
		AccountID int64 `json:"account_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.s.Disconnect(c.Context(), orgID, body.AccountID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
