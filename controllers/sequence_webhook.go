package controller

import (
	"fmt"
	"strconv"

	"leadflow/models"
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
)

// HandleSequenceWebhook records an outbound send intent. The payload is loosely
// typed and is not checked against stored sequences.
func (sc *SequenceController) HandleSequenceWebhook(c *fiber.Ctx) error {
	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if !webhookPresent(payload, "to") || !webhookPresent(payload, "subject") {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "missing to or subject", nil)
	}

	email := utils.OutboundEmail{
		To:       webhookField(payload, "to"),
		Subject:  webhookField(payload, "subject"),
		Body:     webhookField(payload, "body"),
		Sequence: webhookField(payload, "sequenceId"),
		Step:     webhookField(payload, "stepIndex"),
	}

	ctx := c.UserContext()
	details := fmt.Sprintf("to:%s sequence:%s step:%s subject:%s", email.To, email.Sequence, email.Step, email.Subject)
	if err := sc.Store.LogActivity(ctx, models.ActivityWebhookSend, details); err != nil {
		return storageFailure(c, "log_webhook_send", err)
	}

	if err := sc.Mailer.Send(ctx, email); err != nil {
		// delivery is best effort once the intent is logged
		utils.LogError("webhook_mail_failed", err, map[string]interface{}{
			"to":       email.To,
			"sequence": email.Sequence,
		})
	}

	return c.JSON(fiber.Map{"ok": true, "queued": true})
}

// webhookPresent reports whether key holds a usable value. Null, false, zero, ""
// and empty arrays or objects all count as missing.
func webhookPresent(payload map[string]interface{}, key string) bool {
	switch v := payload[key].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	default:
		return true
	}
}

// webhookField renders a loosely typed payload value for the activity details; absent and null read as empty
func webhookField(payload map[string]interface{}, key string) string {
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
