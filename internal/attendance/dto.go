package attendance

import "time"

const (
	// 退場プロンプト送信から自動退場までの猶予
	PromptGracePeriod = 30 * time.Minute

	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CheckInRequest struct {
	PrincipalPhone  string   `json:"phone" binding:"required"`
	DisplayName     string   `json:"display_name" binding:"required"`
	DepartmentLabel string   `json:"department_label" binding:"required"`
	Lat             *float64 `json:"lat" binding:"required"`
	Lng             *float64 `json:"lng" binding:"required"`
}

type CheckOutRequest struct {
	PrincipalPhone string `json:"phone" binding:"required"`
}

type RecordResponse struct {
	ID                  string               `json:"id"`
	PrincipalPhone      string               `json:"phone"`
	DisplayName         string               `json:"display_name"`
	DepartmentLabel     string               `json:"department_label"`
	CheckInAt           time.Time            `json:"check_in_at"`
	CheckOutAt          *time.Time           `json:"check_out_at,omitempty"`
	OnSite              bool                 `json:"on_site"`
	HighRiskWorkLabel   string               `json:"high_risk_work_label,omitempty"`
	NoticeConfirmations []NoticeConfirmation `json:"notice_confirmations,omitempty"`
	AutoCheckout        bool                 `json:"auto_checkout,omitempty"`
	AutoCheckoutReason  string               `json:"auto_checkout_reason,omitempty"`
}

func (r Record) toDTO() RecordResponse {
	return RecordResponse{
		ID:                  r.ID,
		PrincipalPhone:      r.PrincipalPhone,
		DisplayName:         r.DisplayName,
		DepartmentLabel:     r.DepartmentLabel,
		CheckInAt:           r.CheckInAt,
		CheckOutAt:          r.CheckOutAt,
		OnSite:              r.IsOnSite(),
		HighRiskWorkLabel:   r.HighRiskWorkLabel,
		NoticeConfirmations: r.NoticeConfirmations,
		AutoCheckout:        r.AutoCheckout,
		AutoCheckoutReason:  r.AutoCheckoutReason,
	}
}

type ListQuery struct {
	Phone      *string
	OnSiteOnly bool
	Limit      int
	Offset     int
}

// スイープ結果のサマリ（運用ログおよび手動実行のレスポンス）
type SweepSummary struct {
	Label          string   `json:"label"`
	Checked        int      `json:"checked"`
	InsideCount    int      `json:"inside_count"`
	InsideNames    []string `json:"inside_names,omitempty"`
	PromptedCount  int      `json:"prompted_count"`
	AutoCheckedOut []string `json:"auto_checked_out,omitempty"`
	FailedCount    int      `json:"failed_count"`
}
