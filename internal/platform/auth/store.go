package auth

import (
	"context"
	"database/sql"
	"errors"
)

type Account struct {
	ID           string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

// 匿名認証の主体（作業者）。セッション失効は token_version のインクリメントで行う。
type Principal struct {
	ID           string
	Phone        string
	TokenVersion int64
	CreatedAt    string
}

type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	CreateAccount(ctx context.Context, a *Account) error
}

type PrincipalStore interface {
	PrincipalByPhone(ctx context.Context, phone string) (*Principal, error)
	PrincipalByID(ctx context.Context, id string) (*Principal, error)
	CreatePrincipal(ctx context.Context, p *Principal) error
	// id昇順のキーセットページング。afterID="" で先頭から。
	ListPrincipalPage(ctx context.Context, afterID string, limit int) ([]Principal, error)
	BumpTokenVersion(ctx context.Context, id string) error
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ===== accounts =====

func (s *Store) GetAccount(ctx context.Context, id string) (*Account, error) {
	const q = `
SELECT id, password_hash, role, is_disabled, created_at
FROM auth_accounts
WHERE id = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID,
		&a.PasswordHash,
		&a.Role,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isDisabledInt != 0 {
		a.IsDisabled = true
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (id, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, 0, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.PasswordHash, a.Role)
	return err
}

// ===== principals =====

func (s *Store) PrincipalByPhone(ctx context.Context, phone string) (*Principal, error) {
	const q = `
SELECT id, phone, token_version, created_at
FROM principals
WHERE phone = ?
LIMIT 1
`
	return scanPrincipal(s.db.QueryRowContext(ctx, q, phone))
}

func (s *Store) PrincipalByID(ctx context.Context, id string) (*Principal, error) {
	const q = `
SELECT id, phone, token_version, created_at
FROM principals
WHERE id = ?
LIMIT 1
`
	return scanPrincipal(s.db.QueryRowContext(ctx, q, id))
}

func scanPrincipal(row *sql.Row) (*Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Phone, &p.TokenVersion, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePrincipal(ctx context.Context, p *Principal) error {
	const q = `
INSERT INTO principals (id, phone, token_version, created_at)
VALUES (?, ?, 1, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, p.ID, p.Phone)
	return err
}

func (s *Store) ListPrincipalPage(ctx context.Context, afterID string, limit int) ([]Principal, error) {
	const q = `
SELECT id, phone, token_version, created_at
FROM principals
WHERE id > ?
ORDER BY id ASC
LIMIT ?
`
	rows, err := s.db.QueryContext(ctx, q, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		var p Principal
		if err := rows.Scan(&p.ID, &p.Phone, &p.TokenVersion, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) BumpTokenVersion(ctx context.Context, id string) error {
	const q = `UPDATE principals SET token_version = token_version + 1 WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
