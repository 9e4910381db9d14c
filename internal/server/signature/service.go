package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/server/contracts"
	"github.com/revendaauto/backoffice/internal/utils"
)

// token entropy in bytes
const tokenBytes = 32

var (
	ErrTokenNotFound        = errors.New("signing link not found")
	ErrTokenExpired         = errors.New("signing link expired")
	ErrTokenAlreadyConsumed = errors.New("signing link already used")
	ErrIdentityMismatch     = errors.New("identity fragment does not match")
	ErrContractNotFound     = errors.New("contract not found")
	ErrContractSigned       = errors.New("contract already signed")
)

// ContractStore is the contract collaborator of the signing flow.
type ContractStore interface {
	contracts.Provider
	MarkSignedTx(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error
}

// commitHook runs inside the consuming transaction. An error rolls the
// token back to unconsumed.
type commitHook func(ctx context.Context, tx *sqlx.Tx, contractID int64, now time.Time) error

// Observer receives one call per issued link and per validation attempt.
type Observer interface {
	ObserveSignatureIssued()
	ObserveSignatureAttempt(outcome string)
}

type IssuedToken struct {
	Token      string              `json:"-"`
	SigningURL string              `json:"signingUrl"`
	ExpiresAt  time.Time           `json:"expiresAt"`
	Contract   *contracts.Contract `json:"-"`
}

// TokenInfo describes a live token without consuming it.
type TokenInfo struct {
	ContractID int64
	ExpiresAt  time.Time
	Contract   *contracts.Contract
}

type SignResult struct {
	ContractID int64     `json:"contractId"`
	SignedAt   time.Time `json:"signedAt"`
}

// Service issues single-use signing tokens and gates the signed transition
// of a contract behind them.
type Service struct {
	config    *Config
	baseURL   string
	store     *tokenStore
	contracts ContractStore
	notifier  *notifier
	observer  Observer
	now       func() time.Time
}

func NewService(config *Config, db *sqlx.DB, contracts ContractStore, baseURL string) *Service {
	return &Service{
		config:    config.withDefaults(),
		baseURL:   baseURL,
		store:     &tokenStore{db: db},
		contracts: contracts,
		now:       time.Now,
	}
}

func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

func (s *Service) RateLimit() string {
	return s.config.RateLimit
}

func (s *Service) SigningPath() string {
	return s.config.SigningPath
}

// Issue mints a token for a pending contract.
func (s *Service) Issue(ctx context.Context, contractID int64) (*IssuedToken, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == contracts.StatusSigned {
		return nil, ErrContractSigned
	}

	token, err := utils.TokenURLSafe(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	if err := s.store.insert(ctx, &tokenRecord{
		TokenHash:  hashToken(token),
		ContractID: contractID,
		IssuedAt:   issuedAt.UnixMilli(),
		ExpiresAt:  expiresAt.UnixMilli(),
	}); err != nil {
		return nil, err
	}

	if s.observer != nil {
		s.observer.ObserveSignatureIssued()
	}

	slog.Info("signature token issued", "contract", contractID, "token", utils.MaskSecret(token), "expires", expiresAt)
	return &IssuedToken{
		Token:      token,
		SigningURL: utils.JoinURL(s.baseURL, s.config.SigningPath, token),
		ExpiresAt:  time.UnixMilli(expiresAt.UnixMilli()).UTC(),
		Contract:   contract,
	}, nil
}

// Lookup reports what a token is for. It never consumes.
func (s *Service) Lookup(ctx context.Context, token string) (*TokenInfo, error) {
	rec, err := s.liveRecord(ctx, token)
	if err != nil {
		return nil, err
	}

	contract, err := s.getContract(ctx, rec.ContractID)
	if err != nil {
		return nil, err
	}

	return &TokenInfo{
		ContractID: rec.ContractID,
		ExpiresAt:  time.UnixMilli(rec.ExpiresAt).UTC(),
		Contract:   contract,
	}, nil
}

// ValidateAndConsume checks token and fragment and, when both pass, marks
// the token consumed. Of any number of concurrent callers presenting the
// same token, at most one gets the contract id back.
func (s *Service) ValidateAndConsume(ctx context.Context, token string, fragment string) (int64, error) {
	return s.consume(ctx, token, fragment, nil)
}

// Sign consumes the token and moves the contract to signed in one
// transaction. If either write fails neither is kept.
func (s *Service) Sign(ctx context.Context, token string, fragment string) (*SignResult, error) {
	var signedAt time.Time
	id, err := s.consume(ctx, token, fragment, func(ctx context.Context, tx *sqlx.Tx, contractID int64, now time.Time) error {
		signedAt = time.UnixMilli(now.UnixMilli()).UTC()
		err := s.contracts.MarkSignedTx(ctx, tx, contractID, signedAt)
		if errors.Is(err, contracts.ErrAlreadySigned) {
			return ErrContractSigned
		} else if err != nil {
			return fmt.Errorf("mark contract %d signed: %w", contractID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &SignResult{ContractID: id, SignedAt: signedAt}, nil
}

func (s *Service) consume(ctx context.Context, token string, fragment string, hook commitHook) (id int64, err error) {
	defer func() {
		s.observe(err)
	}()

	rec, err := s.liveRecord(ctx, token)
	if err != nil {
		return 0, err
	}

	contract, err := s.getContract(ctx, rec.ContractID)
	if err != nil {
		return 0, err
	}
	if hook != nil && contract.Status == contracts.StatusSigned {
		return 0, ErrContractSigned
	}

	expected, err := ExpectedFragment(contract.CustomerDocument)
	if err != nil {
		return 0, fmt.Errorf("contract %d: %w", contract.ID, err)
	}
	if !MatchFragment(expected, fragment) {
		slog.Warn("signature identity mismatch", "contract", rec.ContractID, "token", utils.MaskSecret(token))
		return 0, ErrIdentityMismatch
	}

	now := s.now()
	ok, err := s.consumeTx(ctx, rec, now, hook)
	if err != nil {
		return 0, err
	}
	if !ok {
		// lost the race or crossed expiry in between
		if _, err := s.liveRecord(ctx, token); err != nil {
			return 0, err
		}
		return 0, ErrTokenAlreadyConsumed
	}

	slog.Info("signature token consumed", "contract", rec.ContractID, "token", utils.MaskSecret(token))
	return rec.ContractID, nil
}

func (s *Service) consumeTx(ctx context.Context, rec *tokenRecord, now time.Time, hook commitHook) (ok bool, err error) {
	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin consume: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			tx.Rollback()
		}
	}()

	ok, err = s.store.consume(ctx, tx, rec.TokenHash, now)
	if err != nil || !ok {
		return ok, err
	}
	if hook != nil {
		if err = hook(ctx, tx, rec.ContractID, now); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit consume: %w", err)
	}
	return true, nil
}

func (s *Service) liveRecord(ctx context.Context, token string) (*tokenRecord, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	rec, err := s.store.get(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if rec.expired(s.now()) {
		return nil, ErrTokenExpired
	}
	if rec.Consumed {
		return nil, ErrTokenAlreadyConsumed
	}
	return rec, nil
}

func (s *Service) getContract(ctx context.Context, id int64) (*contracts.Contract, error) {
	contract, err := s.contracts.Get(ctx, id)
	if errors.Is(err, contracts.ErrNotFound) {
		return nil, ErrContractNotFound
	} else if err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) observe(err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveSignatureAttempt(Outcome(err))
}

// Outcome maps a validation error to a short label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenAlreadyConsumed):
		return "consumed"
	case errors.Is(err, ErrIdentityMismatch):
		return "mismatch"
	case errors.Is(err, ErrContractSigned):
		return "signed"
	default:
		return "error"
	}
}
