package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_TicketSigningKey(t *testing.T) {
	conf := NewTestConfig()
	assert.Equal(t, "test-ticket-key", conf.TicketSigningKey())

	conf.SecretKey = "rotated"
	assert.Equal(t, "test-ticket-key", conf.TicketSigningKey())

	conf.Ticket.SigningKey = ""
	assert.Equal(t, "rotated", conf.TicketSigningKey())
}
