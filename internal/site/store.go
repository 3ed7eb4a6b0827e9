package site

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"safesite-backend/internal/geofence"
)

// サイト設定はシングルトン（id=1固定）。ライフサイクルエンジンからは読み取り専用で、
// 変更は管理画面向けのハンドラ経由のみ。
type Config struct {
	Center              geofence.Point `json:"center"`
	AllowedRadiusMeters float64        `json:"allowed_radius_m"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type Reader interface {
	GetConfig(ctx context.Context) (*Config, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) GetConfig(ctx context.Context) (*Config, error) {
	const q = `
SELECT center_lat, center_lng, allowed_radius_m, updated_at
FROM site_config
WHERE id = 1
`
	var c Config
	err := s.db.QueryRowContext(ctx, q).Scan(&c.Center.Lat, &c.Center.Lng, &c.AllowedRadiusMeters, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("site config not seeded")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateConfig(ctx context.Context, center geofence.Point, radiusMeters float64) error {
	const q = `
INSERT INTO site_config (id, center_lat, center_lng, allowed_radius_m, updated_at)
VALUES (1, ?, ?, ?, NOW(6))
ON DUPLICATE KEY UPDATE
center_lat = VALUES(center_lat),
center_lng = VALUES(center_lng),
allowed_radius_m = VALUES(allowed_radius_m),
updated_at = VALUES(updated_at)`
	_, err := s.db.ExecContext(ctx, q, center.Lat, center.Lng, radiusMeters)
	return err
}
