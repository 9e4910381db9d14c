package auth

import (
	"context"
	_ "embed"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/revendaauto/backoffice/internal/utils"
)

//go:embed authmail.html.tmpl
var emailTemplate string

var (
	ErrInvalidEmail        = utils.ErrEmailInvalid
	ErrEmailNotAllowed     = errors.New("email is not allowed to sign in")
	ErrInvalidOTP          = errors.New("invalid otp")
	ErrTooManyAttempts     = errors.New("too many otp attempts")
	ErrInvalidRequestToken = errors.New("invalid request token")
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Mailer delivers OTP emails.
type Mailer interface {
	IsEnabled() bool
	Send(ctx context.Context, msg *email.Message) error
}

type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims identify a staff member. Subject is the lower-cased email.
type Claims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
