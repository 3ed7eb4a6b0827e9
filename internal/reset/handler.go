package reset

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// 手動トリガ。認証済み管理者のみ（ミドルウェアは外側で適用）。
// 定時実行と同じステップ実装を叩くため、いつ何度呼んでも安全。
func RegisterRoutes(admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	admin.POST("/admin/reset", h.TriggerReset)
	admin.POST("/admin/revoke-sessions", h.TriggerRevoke)
}

func (h *Handler) TriggerReset(c *gin.Context) {
	res := h.svc.Run(c.Request.Context())

	// 部分失敗はステップ別結果として返す。全滅のときだけ RESET_FAILED
	if res.AllFailed() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "RESET_FAILED", "message": "all reset steps failed"},
			"steps": res.Steps,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) TriggerRevoke(c *gin.Context) {
	n, err := h.svc.RevokeAllSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         gin.H{"code": "RESET_FAILED", "message": "revocation failed"},
			"revoked_count": n,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked_count": n})
}
