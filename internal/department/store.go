package department

import (
	"context"
	"database/sql"
	"errors"

	"safesite-backend/internal/platform/db"
)

type DepartmentStore interface {
	GetByID(ctx context.Context, id string) (*Department, error)
	ListAll(ctx context.Context) ([]Department, error)
	ListTeamIDs(ctx context.Context, companyID string) ([]string, error)
	Insert(ctx context.Context, d *Department) error
	// 会社＋配下チームを1バッチで削除（全成功か全失敗か）
	DeleteCascade(ctx context.Context, ids []string) error
	DeleteOne(ctx context.Context, id string) error
}

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

func (s *Store) GetByID(ctx context.Context, id string) (*Department, error) {
	const q = `
SELECT id, name, type, parent_id, created_at
FROM departments
WHERE id = ?
LIMIT 1`
	var d Department
	err := s.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.Type, &d.ParentID, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListAll(ctx context.Context) ([]Department, error) {
	const q = `
SELECT id, name, type, parent_id, created_at
FROM departments
ORDER BY type ASC, name ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.ParentID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListTeamIDs(ctx context.Context, companyID string) ([]string, error) {
	const q = `SELECT id FROM departments WHERE type = 'team' AND parent_id = ?`
	rows, err := s.db.QueryContext(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Insert(ctx context.Context, d *Department) error {
	const q = `
INSERT INTO departments (id, name, type, parent_id, created_at)
VALUES (?, ?, ?, ?, NOW(6))`
	var parent any
	if d.ParentID != nil {
		parent = *d.ParentID
	}
	_, err := s.db.ExecContext(ctx, q, d.ID, d.Name, d.Type, parent)
	return err
}

// DeleteCascade: 単一Txでまとめて削除する。1件でも失敗したら全てロールバック。
func (s *Store) DeleteCascade(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > db.MaxBatchOps {
		return errors.New("cascade exceeds batch ceiling")
	}
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		q := "DELETE FROM departments WHERE id IN (" + db.Placeholders(len(ids)) + ")"
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	})
}

func (s *Store) DeleteOne(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
	return err
}
