package attendance

import (
	"encoding/json"
	"time"

	"safesite-backend/internal/geofence"
)

// 掲示板の確認状況（レコード側に追記されていく）
type NoticeConfirmation struct {
	BulletinID string `json:"bulletin_id"`
	Confirmed  bool   `json:"confirmed"`
}

// 入場1回につき1レコード。check_out_at IS NULL が「在場中」の唯一の定義。
// 同一作業者の未退場レコードが複数残ることは許容し、参照は常に check_in_at 最新を取る。
type Record struct {
	ID                  string
	PrincipalPhone      string
	DisplayName         string
	DepartmentLabel     string // "会社名 - チーム名" 形式の非正規化ラベル
	CheckInAt           time.Time
	CheckOutAt          *time.Time
	LastLocation        *geofence.Point // 在場中のみ保持。退場時に必ずクリア
	HighRiskWorkLabel   string
	NoticeConfirmations []NoticeConfirmation
	LastPromptAt        *time.Time
	AutoCheckout        bool
	AutoCheckoutReason  string
}

func (r *Record) IsOnSite() bool { return r.CheckOutAt == nil }

// DB行（スキャン用）
type recordRow struct {
	ID                  string
	PrincipalPhone      string
	DisplayName         string
	DepartmentLabel     string
	CheckInAt           time.Time
	CheckOutAt          *time.Time
	LastLat             *float64
	LastLng             *float64
	HighRiskWorkLabel   *string
	NoticeConfirmations []byte // JSON
	LastPromptAt        *time.Time
	AutoCheckoutInt     int
	AutoCheckoutReason  *string
}

func (r recordRow) toModel() Record {
	m := Record{
		ID:              r.ID,
		PrincipalPhone:  r.PrincipalPhone,
		DisplayName:     r.DisplayName,
		DepartmentLabel: r.DepartmentLabel,
		CheckInAt:       r.CheckInAt.UTC(),
		CheckOutAt:      r.CheckOutAt,
		LastPromptAt:    r.LastPromptAt,
		AutoCheckout:    r.AutoCheckoutInt != 0,
	}
	if r.LastLat != nil && r.LastLng != nil {
		m.LastLocation = &geofence.Point{Lat: *r.LastLat, Lng: *r.LastLng}
	}
	if r.HighRiskWorkLabel != nil {
		m.HighRiskWorkLabel = *r.HighRiskWorkLabel
	}
	if r.AutoCheckoutReason != nil {
		m.AutoCheckoutReason = *r.AutoCheckoutReason
	}
	if len(r.NoticeConfirmations) > 0 {
		// 壊れたJSONは空扱い（読めないだけで行ごと失敗させない）
		_ = json.Unmarshal(r.NoticeConfirmations, &m.NoticeConfirmations)
	}
	return m
}

// スイープ1回につき1行のステータスログ
type SweepLog struct {
	ID             string
	Label          string
	InsideCount    int
	InsideNames    []string
	PromptedCount  int
	AutoCheckedOut []string
	FailedCount    int
	CreatedAt      time.Time
}
