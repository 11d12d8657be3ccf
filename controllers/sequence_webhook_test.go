package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookField(t *testing.T) {
	payload := map[string]interface{}{
		"to":         "ada@example.com",
		"stepIndex":  float64(2),
		"sequenceId": float64(12.5),
		"flag":       true,
		"off":        false,
		"null":       nil,
	}

	assert.Equal(t, "ada@example.com", webhookField(payload, "to"))
	assert.Equal(t, "2", webhookField(payload, "stepIndex"))
	assert.Equal(t, "12.5", webhookField(payload, "sequenceId"))
	assert.Equal(t, "true", webhookField(payload, "flag"))
	assert.Equal(t, "false", webhookField(payload, "off"))
	assert.Equal(t, "", webhookField(payload, "null"))
	assert.Equal(t, "", webhookField(payload, "missing"))
}

func TestWebhookPresent(t *testing.T) {
	payload := map[string]interface{}{
		"to":        "ada@example.com",
		"blank":     "",
		"zero":      float64(0),
		"number":    float64(3),
		"no":        false,
		"yes":       true,
		"emptyList": []interface{}{},
		"list":      []interface{}{"x"},
		"emptyMap":  map[string]interface{}{},
		"map":       map[string]interface{}{"k": "v"},
		"null":      nil,
	}

	for key, want := range map[string]bool{
		"to":        true,
		"blank":     false,
		"zero":      false,
		"number":    true,
		"no":        false,
		"yes":       true,
		"emptyList": false,
		"list":      true,
		"emptyMap":  false,
		"map":       true,
		"null":      false,
		"missing":   false,
	} {
		assert.Equal(t, want, webhookPresent(payload, key), key)
	}
}
