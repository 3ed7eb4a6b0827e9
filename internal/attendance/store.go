package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"safesite-backend/internal/platform/db"
)

// Service から見た永続化境界。テストではフェイクに差し替える。
type RecordStore interface {
	Insert(ctx context.Context, r *Record) error
	LatestOpenByPhone(ctx context.Context, phone string) (*Record, error)
	MarkCheckedOut(ctx context.Context, id string, at time.Time, auto bool, reason string) error
	OpenWithLocation(ctx context.Context) ([]Record, error)
	StampPrompt(ctx context.Context, id string, at time.Time) error
	InsertSweepLog(ctx context.Context, l *SweepLog) error
	List(ctx context.Context, q ListQuery) ([]Record, error)
}

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

const recordCols = `
id, principal_phone, display_name, department_label, check_in_at, check_out_at,
last_lat, last_lng, high_risk_work_label, notice_confirmations, last_prompt_at,
auto_checkout, auto_checkout_reason`

func (s *Store) Insert(ctx context.Context, r *Record) error {
	const q = `
INSERT INTO attendance_records
(id, principal_phone, display_name, department_label, check_in_at, last_lat, last_lng)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	var lat, lng any
	if r.LastLocation != nil {
		lat, lng = r.LastLocation.Lat, r.LastLocation.Lng
	}
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.PrincipalPhone, r.DisplayName, r.DepartmentLabel, r.CheckInAt, lat, lng)
	return err
}

// 同一phoneの未退場レコードのうち check_in_at 最新の1件
func (s *Store) LatestOpenByPhone(ctx context.Context, phone string) (*Record, error) {
	q := `SELECT ` + recordCols + `
FROM attendance_records
WHERE principal_phone = ? AND check_out_at IS NULL
ORDER BY check_in_at DESC
LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, phone)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// 退場処理。位置情報は陳腐化放置ではなく必ずNULLに落とす。
func (s *Store) MarkCheckedOut(ctx context.Context, id string, at time.Time, auto bool, reason string) error {
	const q = `
UPDATE attendance_records
SET check_out_at = ?, last_lat = NULL, last_lng = NULL,
    auto_checkout = ?, auto_checkout_reason = ?
WHERE id = ? AND check_out_at IS NULL`
	autoInt := 0
	if auto {
		autoInt = 1
	}
	var reasonArg any
	if reason != "" {
		reasonArg = reason
	}
	_, err := s.db.ExecContext(ctx, q, at, autoInt, reasonArg, id)
	return err
}

// スイープ対象: 未退場かつ位置情報あり
func (s *Store) OpenWithLocation(ctx context.Context) ([]Record, error) {
	q := `SELECT ` + recordCols + `
FROM attendance_records
WHERE check_out_at IS NULL AND last_lat IS NOT NULL AND last_lng IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) StampPrompt(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE attendance_records SET last_prompt_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, at, id)
	return err
}

func (s *Store) InsertSweepLog(ctx context.Context, l *SweepLog) error {
	const q = `
INSERT INTO sweep_logs (id, label, inside_count, inside_names, prompted_count, auto_checked_out, failed_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	names, err := json.Marshal(l.InsideNames)
	if err != nil {
		return err
	}
	autos, err := json.Marshal(l.AutoCheckedOut)
	if err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = ulid.Make().String()
	}
	_, err = s.db.ExecContext(ctx, q,
		l.ID, l.Label, l.InsideCount, names, l.PromptedCount, autos, l.FailedCount, l.CreatedAt)
	return err
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Record, error) {
	var (
		sb     strings.Builder
		args   []any
		wheres []string
	)
	sb.WriteString(`SELECT ` + recordCols + ` FROM attendance_records`)
	if q.Phone != nil && *q.Phone != "" {
		wheres = append(wheres, "principal_phone = ?")
		args = append(args, *q.Phone)
	}
	if q.OnSiteOnly {
		wheres = append(wheres, "check_out_at IS NULL")
	}
	if len(wheres) > 0 {
		sb.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	sb.WriteString(" ORDER BY check_in_at DESC, id DESC")

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ===== purge (日次リセットから使用) =====

// 全レコードをバッチ削除する。削除件数を返す。
func (s *Store) Purge(ctx context.Context, _ time.Time) (int, error) {
	ids, err := allIDs(ctx, s.db, "attendance_records")
	if err != nil {
		return 0, err
	}
	out := db.DeleteIDsInBatches(ctx, s.db, "attendance_records", ids)
	return int(out.Affected), out.Err()
}

func allIDs(ctx context.Context, sqldb *sql.DB, table string) ([]string, error) {
	rows, err := sqldb.QueryContext(ctx, "SELECT id FROM "+table)
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

// ===== scan helpers =====

type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(row rowScanner) (*Record, error) {
	var r recordRow
	err := row.Scan(
		&r.ID, &r.PrincipalPhone, &r.DisplayName, &r.DepartmentLabel,
		&r.CheckInAt, &r.CheckOutAt, &r.LastLat, &r.LastLng,
		&r.HighRiskWorkLabel, &r.NoticeConfirmations, &r.LastPromptAt,
		&r.AutoCheckoutInt, &r.AutoCheckoutReason,
	)
	if err != nil {
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
