package bulletin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"safesite-backend/internal/department"
	"safesite-backend/internal/platform/db"
)

type BulletinStore interface {
	Insert(ctx context.Context, b *Bulletin) error
	ListAll(ctx context.Context) ([]Bulletin, error)
	DepartmentByID(ctx context.Context, id string) (*department.Department, error)
	AllRecordIDs(ctx context.Context) ([]string, error)
	RecordIDsByLabel(ctx context.Context, label string) ([]string, error)
	RecordIDsByLabelPrefix(ctx context.Context, prefix string) ([]string, error)
	// ids を500件ごとのバッチに割って並行更新する
	AnnotateRecords(ctx context.Context, ids []string, bulletinID, title string, at time.Time) (int, error)
	ConfirmNotice(ctx context.Context, phone, bulletinID string) error
}

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

func (s *Store) Insert(ctx context.Context, b *Bulletin) error {
	const q = `
INSERT INTO bulletins (id, title, body, translations, target_type, target_ids, is_persistent, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	trans, err := json.Marshal(b.Translations)
	if err != nil {
		return err
	}
	targets, err := json.Marshal(b.TargetIDs)
	if err != nil {
		return err
	}
	persistent := 0
	if b.IsPersistent {
		persistent = 1
	}
	_, err = s.db.ExecContext(ctx, q,
		b.ID, b.Title, b.Body, trans, b.TargetType, targets, persistent, b.ExpiresAt, b.CreatedAt)
	return err
}

func (s *Store) ListAll(ctx context.Context) ([]Bulletin, error) {
	const q = `
SELECT id, title, body, translations, target_type, target_ids, is_persistent, expires_at, created_at
FROM bulletins
ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bulletin
	for rows.Next() {
		var (
			b          Bulletin
			trans      []byte
			targets    []byte
			persistent int
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.Body, &trans, &b.TargetType, &targets, &persistent, &b.ExpiresAt, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.IsPersistent = persistent != 0
		if len(trans) > 0 {
			_ = json.Unmarshal(trans, &b.Translations)
		}
		if len(targets) > 0 {
			_ = json.Unmarshal(targets, &b.TargetIDs)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) DepartmentByID(ctx context.Context, id string) (*department.Department, error) {
	const q = `
SELECT id, name, type, parent_id, created_at
FROM departments
WHERE id = ?
LIMIT 1`
	var d department.Department
	err := s.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.Type, &d.ParentID, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) AllRecordIDs(ctx context.Context) ([]string, error) {
	return s.recordIDs(ctx, `SELECT id FROM attendance_records`)
}

func (s *Store) RecordIDsByLabel(ctx context.Context, label string) ([]string, error) {
	return s.recordIDs(ctx, `SELECT id FROM attendance_records WHERE department_label = ?`, label)
}

func (s *Store) RecordIDsByLabelPrefix(ctx context.Context, prefix string) ([]string, error) {
	// LIKEのメタ文字は部署名由来なのでエスケープしておく
	escaped := escapeLike(prefix) + "%"
	return s.recordIDs(ctx, `SELECT id FROM attendance_records WHERE department_label LIKE ?`, escaped)
}

func (s *Store) recordIDs(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

// AnnotateRecords: ラベル書き込み＋未確認エントリの追記。バッチごとにアトミック。
func (s *Store) AnnotateRecords(ctx context.Context, ids []string, bulletinID, title string, at time.Time) (int, error) {
	entry, err := json.Marshal(noticeEntry{BulletinID: bulletinID, Confirmed: false})
	if err != nil {
		return 0, err
	}

	var batches []db.BatchFn
	for _, chunk := range db.Chunk(ids, db.MaxBatchOps) {
		chunk := chunk
		batches = append(batches, func(ctx context.Context, tx db.DBTX) (int64, error) {
			q := `
UPDATE attendance_records
SET high_risk_work_label = ?,
    notice_confirmations = JSON_ARRAY_APPEND(COALESCE(notice_confirmations, JSON_ARRAY()), '$', CAST(? AS JSON)),
    high_risk_pushed_at = ?
WHERE id IN (` + db.Placeholders(len(chunk)) + `)`
			args := []any{title, entry, at}
			for _, id := range chunk {
				args = append(args, id)
			}
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return 0, err
			}
			n, _ := res.RowsAffected()
			return n, nil
		})
	}
	out := db.CommitAll(ctx, s.db, batches)
	return int(out.Affected), out.Err()
}

// ConfirmNotice: 未退場の最新レコードの該当エントリを確認済みに更新する。
// JSON列の部分更新はGo側で読み替えてTx内で書き戻す。
func (s *Store) ConfirmNotice(ctx context.Context, phone, bulletinID string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const sel = `
SELECT id, notice_confirmations
FROM attendance_records
WHERE principal_phone = ? AND check_out_at IS NULL
ORDER BY check_in_at DESC
LIMIT 1
FOR UPDATE`
		var (
			id  string
			raw []byte
		)
		if err := tx.QueryRowContext(ctx, sel, phone).Scan(&id, &raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errors.New("no open attendance record")
			}
			return err
		}

		var entries []noticeEntry
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &entries); err != nil {
				entries = nil
			}
		}
		found := false
		for i := range entries {
			if entries[i].BulletinID == bulletinID {
				entries[i].Confirmed = true
				found = true
			}
		}
		if !found {
			entries = append(entries, noticeEntry{BulletinID: bulletinID, Confirmed: true})
		}
		buf, err := json.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE attendance_records SET notice_confirmations = ? WHERE id = ?`, buf, id)
		return err
	})
}

// ===== purge (日次リセットから使用) =====

// Purge: persistent かつ期限未到来のものだけ残し、他は全てバッチ削除する。
func (s *Store) Purge(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.recordIDs(ctx,
		`SELECT id FROM bulletins WHERE NOT (is_persistent = 1 AND expires_at IS NOT NULL AND expires_at > ?)`, now)
	if err != nil {
		return 0, err
	}
	out := db.DeleteIDsInBatches(ctx, s.db, "bulletins", ids)
	return int(out.Affected), out.Err()
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
