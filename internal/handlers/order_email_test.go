package handlers

import (
	"encoding/json"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/honestmeals/honestmeals/internal/models"
)

func setEmailEnv(t *testing.T) {
	t.Setenv("EMAIL_FROM", "orders@honestmeals.in")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_PORT", "587")
}

func TestLoadEmailConfig(t *testing.T) {
	setEmailEnv(t)

	cfg, err := LoadEmailConfig()
	assert.NoError(t, err)
	assert.Equal(t, "orders@honestmeals.in", cfg.From)
	assert.Equal(t, 587, cfg.Port)
}

func TestLoadEmailConfigIncomplete(t *testing.T) {
	setEmailEnv(t)
	t.Setenv("EMAIL_HOST", "")

	_, err := LoadEmailConfig()
	assert.Error(t, err)
}

func TestSendOrderEmail(t *testing.T) {
	setEmailEnv(t)

	var sentTo []string
	var sentBody []byte
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sentTo = to
		sentBody = msg
		return nil
	}
	t.Cleanup(func() { sendMail = orig })

	payload, _ := json.Marshal(models.OrderEmailPayload{
		OrderID: "ord-1",
		To:      "user@example.com",
		Name:    "Priya",
		Total:   548,
		Items: []models.OrderItem{
			{MealName: "Paneer Bowl", Quantity: 2, PriceINR: 249},
		},
	})

	err := SendOrderEmail(payload)
	assert.NoError(t, err)
	assert.Equal(t, []string{"user@example.com"}, sentTo)
	assert.Contains(t, string(sentBody), "Paneer Bowl")
	assert.Contains(t, string(sentBody), "ord-1")
	assert.Contains(t, string(sentBody), "Priya")
}

func TestSendOrderEmailRejectsBadPayload(t *testing.T) {
	setEmailEnv(t)

	assert.Error(t, SendOrderEmail([]byte("not json")))

	payload, _ := json.Marshal(models.OrderEmailPayload{OrderID: "ord-1"})
	assert.Error(t, SendOrderEmail(payload), "missing recipient must fail")
}
