package signature

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type tokenRecord struct {
	TokenHash  string        `db:"token_hash"`
	ContractID int64         `db:"contract_id"`
	IssuedAt   int64         `db:"issued_at"`
	ExpiresAt  int64         `db:"expires_at"`
	Consumed   bool          `db:"consumed"`
	ConsumedAt sql.NullInt64 `db:"consumed_at"`
}

func (r *tokenRecord) expired(now time.Time) bool {
	return now.UnixMilli() > r.ExpiresAt
}

// tokenStore persists tokens keyed by the SHA-256 of their value.
type tokenStore struct {
	db *sqlx.DB
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *tokenStore) insert(ctx context.Context, rec *tokenRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signature_tokens (token_hash, contract_id, issued_at, expires_at, consumed) VALUES (?, ?, ?, ?, 0)`,
		rec.TokenHash, rec.ContractID, rec.IssuedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (s *tokenStore) get(ctx context.Context, tokenHash string) (*tokenRecord, error) {
	var rec tokenRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT token_hash, contract_id, issued_at, expires_at, consumed, consumed_at FROM signature_tokens WHERE token_hash = ?`,
		tokenHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &rec, nil
}

// consume flips consumed from 0 to 1 in a single statement inside tx. It
// reports false when another caller got there first or the token has expired.
func (s *tokenStore) consume(ctx context.Context, tx *sqlx.Tx, tokenHash string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE signature_tokens SET consumed = 1, consumed_at = ?
		 WHERE token_hash = ? AND consumed = 0 AND expires_at >= ?`,
		now.UnixMilli(), tokenHash, now.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return n == 1, nil
}
