// Package email provides email sending functionality
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"go.uber.org/zap"
)

// Config holds email configuration
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	FromName    string
	UseTLS      bool
	FrontendURL string
}

// Service sends the invitation and verification emails.
type Service struct {
	config    *Config
	templates map[string]*template.Template
	log       *zap.SugaredLogger
}

var _ service.Notifier = (*Service)(nil)

// NewService creates a new email service
func NewService(config *Config, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
		log:       log,
	}
	s.loadTemplates()
	return s
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// InvitationData feeds the invitation template.
type InvitationData struct {
	TeamName     string
	InvitedBy    string
	Role         string
	InviteURL    string
	ExistingUser bool
}

// VerificationData feeds the verification template.
type VerificationData struct {
	Name      string
	Email     string
	VerifyURL string
}

// loadTemplates loads all email templates
func (s *Service) loadTemplates() {
	s.templates["invitation"] = template.Must(template.New("invitation").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #10b981; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .btn { display: inline-block; background: #10b981; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h2>Join {{.TeamName}} on TeamHub</h2>
    </div>
    <div class="content">
        <p>Hello,</p>
        <p><strong>{{.InvitedBy}}</strong> invited you to join <strong>{{.TeamName}}</strong> as {{.Role}}.</p>
        {{if not .ExistingUser}}<p>You will be asked to create an account before joining.</p>{{end}}

        <a href="{{.InviteURL}}" class="btn">Accept Invitation</a>

        <p style="margin-top: 16px; font-size: 14px; color: #6b7280;">
            This invitation expires in 7 days. If you were not expecting this email, you can ignore it.
        </p>
    </div>
    <div class="footer">
        TeamHub
    </div>
</div>
</body>
</html>
`))

	s.templates["verification"] = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .content { background: #f9fafb; padding: 30px; border-radius: 10px; }
        .btn { display: inline-block; background: #667eea; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin-top: 15px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="content">
            <p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
            <p>Your account now uses <strong>{{.Email}}</strong>. Please confirm this address.</p>
            <a href="{{.VerifyURL}}" class="btn">Verify Email</a>
        </div>
    </div>
</body>
</html>
`))
}

// ============================================
// Notifier
// ============================================

func (s *Service) SendInvitationEmail(ctx context.Context, msg service.InvitationEmail) error {
	data := InvitationData{
		TeamName:     msg.TeamName,
		InvitedBy:    msg.InviterName,
		Role:         msg.Role,
		InviteURL:    s.link("/invitations/accept", url.Values{"token": {msg.Token}}),
		ExistingUser: msg.IsExistingUser,
	}
	if data.InvitedBy == "" {
		data.InvitedBy = "A teammate"
	}
	subject := fmt.Sprintf("You're invited to join %s", msg.TeamName)
	return s.SendWithTemplate(ctx, []string{msg.To}, subject, "invitation", data)
}

func (s *Service) SendVerificationEmail(ctx context.Context, msg service.VerificationEmail) error {
	data := VerificationData{
		Name:      msg.Name,
		Email:     msg.To,
		VerifyURL: s.link("/account/verify-email", url.Values{"email": {msg.To}}),
	}
	return s.SendWithTemplate(ctx, []string{msg.To}, "Confirm your email address", "verification", data)
}

func (s *Service) link(path string, query url.Values) string {
	base := strings.TrimRight(s.config.FrontendURL, "/")
	return base + path + "?" + query.Encode()
}

// ============================================
// Delivery
// ============================================

// SendWithTemplate renders templateName with data and sends it as HTML.
func (s *Service) SendWithTemplate(ctx context.Context, to []string, subject, templateName string, data interface{}) error {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	return s.Send(ctx, &Email{
		To:       to,
		Subject:  subject,
		HTMLBody: body.String(),
	})
}

// Send delivers one message. Without an SMTP host the message is logged and dropped.
func (s *Service) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.Host == "" {
		s.log.Infow("Email not configured, skipping send", "to", email.To, "subject", email.Subject)
		return nil
	}

	msg := s.buildMessage(email)
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, s.config.From, email.To, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("TLS dial error: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range email.To {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}
	return client.Quit()
}

func (s *Service) buildMessage(email *Email) []byte {
	var msg bytes.Buffer

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.HTMLBody)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.Body)
	}
	return msg.Bytes()
}
