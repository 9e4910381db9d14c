package contracts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/utils"
)

var (
	ErrNotFound        = errors.New("contract not found")
	ErrAlreadySigned   = errors.New("contract already signed")
	ErrInvalidDocument = errors.New("customer document must have 11 or 14 digits")
	ErrInvalidContract = errors.New("invalid contract")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSigned  Status = "signed"
)

// Contract is the slice of a sales contract the signing flow needs.
type Contract struct {
	ID                 int64      `json:"id"`
	CustomerName       string     `json:"customerName"`
	CustomerDocument   string     `json:"customerDocument"`
	CustomerEmail      string     `json:"customerEmail,omitempty"`
	VehicleDescription string     `json:"vehicleDescription"`
	Status             Status     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	SignedAt           *time.Time `json:"signedAt,omitempty"`
}

type NewContract struct {
	CustomerName       string `json:"customerName"`
	CustomerDocument   string `json:"customerDocument"`
	CustomerEmail      string `json:"customerEmail"`
	VehicleDescription string `json:"vehicleDescription"`
}

// Provider is what the signature flow reads contracts through.
type Provider interface {
	Get(ctx context.Context, id int64) (*Contract, error)
}

type contractRow struct {
	ID                 int64         `db:"id"`
	CustomerName       string        `db:"customer_name"`
	CustomerDocument   string        `db:"customer_document"`
	CustomerEmail      string        `db:"customer_email"`
	VehicleDescription string        `db:"vehicle_description"`
	Status             string        `db:"status"`
	CreatedAt          int64         `db:"created_at"`
	SignedAt           sql.NullInt64 `db:"signed_at"`
}

func (r *contractRow) toContract() *Contract {
	c := &Contract{
		ID:                 r.ID,
		CustomerName:       r.CustomerName,
		CustomerDocument:   r.CustomerDocument,
		CustomerEmail:      r.CustomerEmail,
		VehicleDescription: r.VehicleDescription,
		Status:             Status(r.Status),
		CreatedAt:          time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.SignedAt.Valid {
		t := time.UnixMilli(r.SignedAt.Int64).UTC()
		c.SignedAt = &t
	}
	return c
}

// Store keeps contracts in SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Create(ctx context.Context, nc *NewContract) (*Contract, error) {
	doc, err := NormalizeDocument(nc.CustomerDocument)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(nc.CustomerName)
	if name == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidContract)
	}
	email := strings.TrimSpace(nc.CustomerEmail)
	if email != "" && !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: customer email is not valid", ErrInvalidContract)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contracts (customer_name, customer_document, customer_email, vehicle_description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, doc, email, strings.TrimSpace(nc.VehicleDescription), string(StatusPending), s.now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert contract: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert contract: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id int64) (*Contract, error) {
	var row contractRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, customer_name, customer_document, customer_email, vehicle_description, status, created_at, signed_at
		 FROM contracts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get contract %d: %w", id, err)
	}
	return row.toContract(), nil
}

// MarkSigned moves a pending contract to signed. It is a one-way transition.
func (s *Store) MarkSigned(ctx context.Context, id int64, at time.Time) error {
	return markSigned(ctx, s.db, id, at)
}

// MarkSignedTx is MarkSigned inside the caller's transaction.
func (s *Store) MarkSignedTx(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	return markSigned(ctx, tx, id, at)
}

func markSigned(ctx context.Context, ext sqlx.ExtContext, id int64, at time.Time) error {
	res, err := ext.ExecContext(ctx,
		`UPDATE contracts SET status = ?, signed_at = ? WHERE id = ? AND status = ?`,
		string(StatusSigned), at.UnixMilli(), id, string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark contract %d signed: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark contract %d signed: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, `SELECT EXISTS(SELECT 1 FROM contracts WHERE id = ?)`, id); err != nil {
		return fmt.Errorf("mark contract %d signed: %w", id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadySigned
}

// NormalizeDocument strips formatting from a CPF or CNPJ and checks its length.
func NormalizeDocument(doc string) (string, error) {
	var b strings.Builder
	for _, r := range doc {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		} else if !strings.ContainsRune(".-/ ", r) {
			return "", ErrInvalidDocument
		}
	}
	out := b.String()
	if len(out) != 11 && len(out) != 14 {
		return "", ErrInvalidDocument
	}
	return out, nil
}

var _ Provider = (*Store)(nil)
