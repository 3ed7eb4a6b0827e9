package bulletin

import "time"

const (
	TargetAll     = "all"
	TargetCompany = "company"
	TargetTeam    = "team"
)

type Bulletin struct {
	ID           string
	Title        string
	Body         string
	Translations map[string]string // langCode → 訳文
	TargetType   string            // all | company | team
	TargetIDs    []string          // 部署ID。TargetType=all のときは空
	IsPersistent bool
	ExpiresAt    *time.Time // IsPersistent のとき必須
	CreatedAt    time.Time
}

// 日次パージの免除判定。persistent かつ期限が未来のものだけが生き残る。
// 期限が過ぎた persistent は他の掲示と同様にパージ対象へ戻る。
func (b *Bulletin) ExemptFromPurge(now time.Time) bool {
	return b.IsPersistent && b.ExpiresAt != nil && b.ExpiresAt.After(now)
}

// 出勤レコード側の確認エントリと同じJSON形
type noticeEntry struct {
	BulletinID string `json:"bulletin_id"`
	Confirmed  bool   `json:"confirmed"`
}
