package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	ErrDisabled             = errors.New("email is disabled")
	ErrKeyMissing           = errors.New("sendgrid api key is not set")
	ErrInvalidMailSender    = errors.New("invalid mail sender")
	ErrInvalidMailRecipient = errors.New("invalid mail recipient")
)

// Message is one outgoing HTML email. The sender comes from Config.
type Message struct {
	ToName   string
	ToEmail  string
	Subject  string
	HTMLBody string
}

type dispatchFunc func(ctx context.Context, m *mail.SGMailV3) (int, error)

type Service struct {
	config   *Config
	dispatch dispatchFunc
}

func NewService(config *Config) *Service {
	s := &Service{config: config}
	s.dispatch = s.sendgrid
	return s
}

func (s *Service) IsEnabled() bool {
	return s.config.Enabled
}

func (s *Service) Send(ctx context.Context, msg *Message) error {
	if !s.IsEnabled() {
		return ErrDisabled
	}
	if s.config.SendgridAPIKey == "" {
		return ErrKeyMissing
	}
	if s.config.FromEmail == "" {
		return ErrInvalidMailSender
	}
	if msg.ToEmail == "" {
		return ErrInvalidMailRecipient
	}

	fromName := s.config.FromName
	if fromName == "" {
		fromName = s.config.FromEmail
	}
	toName := msg.ToName
	if toName == "" {
		toName = msg.ToEmail
	}

	from := mail.NewEmail(fromName, s.config.FromEmail)
	to := mail.NewEmail(toName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTMLBody)

	status, err := s.dispatch(ctx, message)
	if err != nil {
		slog.Error("failed to send email", "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("failed to send email: sendgrid status %d", status)
	}

	slog.Debug("email sent", "to", msg.ToEmail, "subject", msg.Subject, "status", status)
	return nil
}

func (s *Service) sendgrid(ctx context.Context, m *mail.SGMailV3) (int, error) {
	client := sendgrid.NewSendClient(s.config.SendgridAPIKey)
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}
