package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender_NoAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "desk@clinic.example"}, nil)
	assert.Nil(t, sender, "no API key should yield nil sender")
}

func TestNewSendGridSender_DefaultsFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "SG.test", FromEmail: "desk@clinic.example"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "Clearbrook Clinic", sender.from.Name)
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)
	err := sender.Send(context.Background(), EmailMessage{
		To:      "pat@example.com",
		Subject: "An opening came up",
		Body:    "A slot opened on your preferred day.",
	})
	assert.NoError(t, err)
}
