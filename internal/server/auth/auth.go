package auth

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/revendaauto/backoffice/internal/utils"
)

// Service signs staff in: an emailed one-time code buys a JWT pair, the
// refresh token buys the next one.
type Service struct {
	config *Config
	mailer Mailer
	otps   *otpStore
	tokens *tokenSigner
	mail   *template.Template
}

func NewService(config *Config, mailer Mailer) *Service {
	return &Service{
		config: config,
		mailer: mailer,
		otps:   newOTPStore(config.EmailOTPLength, config.EmailOTPExpiry),
		tokens: newTokenSigner(config),
		mail:   template.Must(template.New("otp").Parse(emailTemplate)),
	}
}

func (s *Service) IsEnabled() bool {
	return s.config.Enabled
}

// SendOTP mails a fresh code to an allowed address. Without a mail provider
// the code is only logged, which is how local setups sign in.
func (s *Service) SendOTP(ctx context.Context, address string) error {
	if !s.IsEnabled() {
		return nil
	}

	address = normalizeEmail(address)
	if !utils.IsValidEmail(address) {
		return ErrInvalidEmail
	}
	if !s.config.isAllowed(address) {
		slog.Warn("otp requested for unlisted email", "email", address)
		return ErrEmailNotAllowed
	}

	code, err := s.otps.issue(address)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	if s.mailer == nil || !s.mailer.IsEnabled() {
		slog.Warn("email disabled, otp not sent", "email", address, "otp", code)
		return nil
	}

	body, err := s.renderOTPEmail(address, code)
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	return s.mailer.Send(ctx, &email.Message{
		ToEmail:  address,
		Subject:  "Código de verificação",
		HTMLBody: body,
	})
}

// Login trades a valid code for a token pair. With auth disabled it returns
// an empty pair.
func (s *Service) Login(ctx context.Context, address, code string) (*TokenPair, error) {
	if !s.IsEnabled() {
		return &TokenPair{}, nil
	}

	address = normalizeEmail(address)
	if !utils.IsValidEmail(address) {
		return nil, ErrInvalidEmail
	}
	if err := s.otps.check(address, code); err != nil {
		return nil, err
	}

	pair, err := s.tokens.pair(address)
	if err != nil {
		return nil, err
	}

	slog.Info("staff signed in", "email", address)
	return pair, nil
}

// Refresh rotates a pair. An address dropped from the allow list loses
// access here.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRequestToken
	}

	claims, err := s.tokens.parse(refreshToken, KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	if !s.config.isAllowed(claims.Subject) {
		return nil, ErrEmailNotAllowed
	}

	return s.tokens.pair(claims.Subject)
}

// Authenticate validates an access token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	if accessToken == "" {
		return nil, ErrInvalidAccessToken
	}

	claims, err := s.tokens.parse(accessToken, KindAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	return claims, nil
}

func (s *Service) renderOTPEmail(to, code string) (string, error) {
	var buf bytes.Buffer
	err := s.mail.Execute(&buf, map[string]any{
		"Email":        to,
		"Code":         code,
		"Year":         time.Now().Year(),
		"ValidityMins": s.config.EmailOTPExpiry.Minutes(),
	})
	return buf.String(), err
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// OTPExpiry is how long an emailed code stays valid.
func (s *Service) OTPExpiry() time.Duration {
	return s.config.EmailOTPExpiry
}
