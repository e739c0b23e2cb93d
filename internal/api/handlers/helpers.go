package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/adnanh27/postbridge/internal/errs"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

func GetOrgID(c *fiber.Ctx) int64 {
	orgID, _ := strconv.Atoi(c.Locals("org_id").(string))
	return int64(orgID)
}

// fail maps service errors onto status codes: rejected input is the
// caller's fault, everything else is ours.
func fail(c *fiber.Ctx, err error) error {
	if errs.IsValidation(err) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "something went wrong",
	})
}
