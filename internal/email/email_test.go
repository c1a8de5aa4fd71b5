package email

import (
	"context"
	"strings"
	"testing"

	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageHeaders(t *testing.T) {
	s := NewService(&Config{From: "noreply@teamhub.app", FromName: "TeamHub"}, nil)

	msg := string(s.buildMessage(&Email{
		To:       []string{"bob@example.com"},
		Subject:  "Hello",
		HTMLBody: "<p>hi</p>",
	}))

	assert.True(t, strings.HasPrefix(msg, "From: TeamHub <noreply@teamhub.app>\r\n"))
	assert.Contains(t, msg, "To: bob@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

func TestInvitationTemplateCarriesToken(t *testing.T) {
	s := NewService(&Config{FrontendURL: "https://app.teamhub.test/"}, nil)

	data := InvitationData{
		TeamName:  "Alice's Team",
		InvitedBy: "Alice",
		Role:      "member",
		InviteURL: s.link("/invitations/accept", map[string][]string{"token": {"abc123"}}),
	}
	var body strings.Builder
	require.NoError(t, s.templates["invitation"].Execute(&body, data))

	assert.Contains(t, body.String(), "https://app.teamhub.test/invitations/accept?token=abc123")
	assert.Contains(t, body.String(), "create an account")
}

func TestSendWithoutHostIsSkipped(t *testing.T) {
	s := NewService(&Config{}, nil)

	err := s.SendInvitationEmail(context.Background(), service.InvitationEmail{
		To:       "bob@example.com",
		TeamName: "T",
		Token:    "abc",
	})
	assert.NoError(t, err)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	s := NewService(&Config{Host: "smtp.invalid", Port: 25}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SendVerificationEmail(ctx, service.VerificationEmail{To: "bob@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownTemplate(t *testing.T) {
	s := NewService(&Config{}, nil)
	err := s.SendWithTemplate(context.Background(), []string{"a@example.com"}, "x", "missing", nil)
	assert.Error(t, err)
}
