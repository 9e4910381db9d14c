package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// staff tokens are useless against anything else sharing the secret
const staffAudience = "backoffice-staff"

type tokenSigner struct {
	issuer string
	keys   map[TokenKind]signingKey
	now    func() time.Time
}

type signingKey struct {
	secret []byte
	ttl    time.Duration // 0 never expires
}

func newTokenSigner(c *Config) *tokenSigner {
	return &tokenSigner{
		issuer: c.TokenIssuer,
		keys: map[TokenKind]signingKey{
			KindAccess:  {secret: []byte(c.AccessTokenSecret), ttl: c.AccessTokenExpiry},
			KindRefresh: {secret: []byte(c.RefreshTokenSecret), ttl: c.RefreshTokenExpiry},
		},
		now: time.Now,
	}
}

func (s *tokenSigner) pair(subject string) (*TokenPair, error) {
	access, err := s.sign(subject, KindAccess)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(subject, KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *tokenSigner) sign(subject string, kind TokenKind) (string, error) {
	key := s.keys[kind]
	now := s.now()

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Subject:  subject,
			Issuer:   s.issuer,
			Audience: jwt.ClaimStrings{staffAudience},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if key.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(key.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
}

// parse verifies signature, issuer, audience, expiry and kind.
func (s *tokenSigner) parse(token string, kind TokenKind) (*Claims, error) {
	key := s.keys[kind]
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(staffAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("wrong token kind %q", claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token without subject")
	}
	return claims, nil
}
