package department

import "time"

const (
	TypeCompany = "company"
	TypeTeam    = "team"
)

type Department struct {
	ID        string
	Name      string
	Type      string  // company | team
	ParentID  *string // team のみ必須。company を参照すること
	CreatedAt time.Time
}

// 出勤レコード側の非正規化ラベル。"会社名 - チーム名"（会社のみなら会社名単独）。
// 既存データ互換のため文字列結合のまま踏襲している。
func Label(companyName, teamName string) string {
	if teamName == "" {
		return companyName
	}
	return companyName + " - " + teamName
}

// 会社配下を前方一致で引くためのプレフィックス
func CompanyLabelPrefix(companyName string) string {
	return companyName + " -"
}
