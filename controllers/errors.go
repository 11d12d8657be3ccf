package controller

import (
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
)

// storageFailure reports an unexpected store error and answers 500 without leaking it
func storageFailure(c *fiber.Ctx, operation string, err error) error {
	utils.LogError("storage_failure", err, map[string]interface{}{
		"operation":  operation,
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Locals("requestid"),
	})
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "storage failure", nil)
}
