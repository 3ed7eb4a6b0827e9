package alert

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"safesite-backend/internal/platform/db"
)

var ErrNotFound = errors.New("alert not found")

// SOS発報1件につき1行。日次リセットで無条件にパージされる。
type Alert struct {
	ID             string     `json:"id"`
	PrincipalPhone string     `json:"phone"`
	DisplayName    string     `json:"display_name"`
	Message        string     `json:"message,omitempty"`
	Lat            *float64   `json:"lat,omitempty"`
	Lng            *float64   `json:"lng,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

func (s *Store) Insert(ctx context.Context, a *Alert) error {
	const q = `
INSERT INTO emergency_alerts (id, principal_phone, display_name, message, lat, lng, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.PrincipalPhone, a.DisplayName, a.Message, a.Lat, a.Lng, a.CreatedAt)
	return err
}

func (s *Store) ListAll(ctx context.Context) ([]Alert, error) {
	const q = `
SELECT id, principal_phone, display_name, message, lat, lng, created_at, resolved_at
FROM emergency_alerts
ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.PrincipalPhone, &a.DisplayName, &a.Message, &a.Lat, &a.Lng, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Resolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE emergency_alerts SET resolved_at = NOW(6) WHERE id = ?`, id)
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

// Purge: 無条件の全件バッチ削除
func (s *Store) Purge(ctx context.Context, _ time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM emergency_alerts`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	out := db.DeleteIDsInBatches(ctx, s.db, "emergency_alerts", ids)
	return int(out.Affected), out.Err()
}
