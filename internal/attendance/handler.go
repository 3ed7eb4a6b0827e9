package attendance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// worker: 打刻系、admin: 一覧・手動スイープ
func RegisterRoutes(worker, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	worker.POST("/attendance/check-in", h.CheckIn)
	worker.POST("/attendance/check-out", h.CheckOut)

	admin.GET("/attendance", h.List)
	admin.POST("/attendance/sweep/:label", h.Sweep)
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CheckIn(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) CheckOut(c *gin.Context) {
	var req CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.CheckOut(c.Request.Context(), req.PrincipalPhone)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	if res == nil {
		// 未退場レコードなし。冪等にするためエラーにはしない
		c.JSON(http.StatusOK, gin.H{"message": "no open record"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("phone"); v != "" {
		q.Phone = &v
	}
	if v := c.Query("on_site"); v == "true" || v == "1" {
		q.OnSiteOnly = true
	}

	res, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// 運用調査用の手動スイープ。定時実行と同じ実装を叩くだけ
func (h *Handler) Sweep(c *gin.Context) {
	label := c.Param("label")
	if label != "T1" && label != "T2" && label != "T3" {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "label must be T1, T2 or T3"))
		return
	}

	sum, err := h.svc.Sweep(c.Request.Context(), label)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ---------- helpers ----------

// 負値はそのままLIMIT/OFFSETに渡すとMySQLが弾くため、既定値に落とす
func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
