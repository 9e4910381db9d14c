package signature

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/revendaauto/backoffice/internal/server/email"
)

//go:embed signmail.html.tmpl
var signMailTemplate string

var ErrNoRecipient = errors.New("contract has no customer email")

// Mailer is the slice of the email service the notifier uses.
type Mailer interface {
	IsEnabled() bool
	Send(ctx context.Context, msg *email.Message) error
}

type notifier struct {
	mailer   Mailer
	sender   string
	template *template.Template
}

// WithMailer enables email delivery of signing links.
func (s *Service) WithMailer(m Mailer, senderName string) *Service {
	s.notifier = &notifier{
		mailer:   m,
		sender:   senderName,
		template: template.Must(template.New("signmail").Parse(signMailTemplate)),
	}
	return s
}

// CanNotify reports whether issued links can be delivered by email.
func (s *Service) CanNotify() bool {
	return s.notifier != nil && s.notifier.mailer.IsEnabled()
}

// Notify emails the signing link to the contract's customer.
func (s *Service) Notify(ctx context.Context, issued *IssuedToken) error {
	if !s.CanNotify() {
		return email.ErrDisabled
	}
	contract := issued.Contract
	if contract == nil || contract.CustomerEmail == "" {
		return ErrNoRecipient
	}

	var buf bytes.Buffer
	if err := s.notifier.template.Execute(&buf, map[string]any{
		"CustomerName":  contract.CustomerName,
		"Vehicle":       contract.VehicleDescription,
		"SigningURL":    issued.SigningURL,
		"ValidityHours": int(s.config.TokenExpiry.Hours()),
		"Year":          s.now().Year(),
		"Sender":        s.notifier.sender,
	}); err != nil {
		return fmt.Errorf("render signing email: %w", err)
	}

	if err := s.notifier.mailer.Send(ctx, &email.Message{
		ToName:   contract.CustomerName,
		ToEmail:  contract.CustomerEmail,
		Subject:  "Contrato pronto para assinatura",
		HTMLBody: buf.String(),
	}); err != nil {
		return err
	}

	slog.Info("signature link sent", "contract", contract.ID)
	return nil
}
