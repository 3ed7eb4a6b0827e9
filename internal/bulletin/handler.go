package bulletin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(worker, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	admin.POST("/bulletins", h.Create)
	admin.GET("/bulletins", h.List)

	worker.POST("/bulletins/:id/confirm", h.Confirm)
}

type CreateRequest struct {
	Title        string     `json:"title" binding:"required"`
	Body         string     `json:"body"`
	TargetType   string     `json:"target_type" binding:"required"`
	TargetIDs    []string   `json:"target_ids,omitempty"`
	IsPersistent bool       `json:"is_persistent"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type BulletinResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Translations map[string]string `json:"translations,omitempty"`
	TargetType   string            `json:"target_type"`
	TargetIDs    []string          `json:"target_ids,omitempty"`
	IsPersistent bool              `json:"is_persistent"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toDTO(b Bulletin) BulletinResponse {
	return BulletinResponse{
		ID:           b.ID,
		Title:        b.Title,
		Body:         b.Body,
		Translations: b.Translations,
		TargetType:   b.TargetType,
		TargetIDs:    b.TargetIDs,
		IsPersistent: b.IsPersistent,
		ExpiresAt:    b.ExpiresAt,
		CreatedAt:    b.CreatedAt,
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json or missing required fields"})
		return
	}

	b, annotated, err := h.svc.Create(c.Request.Context(), CreateInput{
		Title:        req.Title,
		Body:         req.Body,
		TargetType:   req.TargetType,
		TargetIDs:    req.TargetIDs,
		IsPersistent: req.IsPersistent,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"bulletin":  toDTO(*b),
		"annotated": annotated,
	})
}

func (h *Handler) List(c *gin.Context) {
	bs, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	out := make([]BulletinResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toDTO(b))
	}
	c.JSON(http.StatusOK, out)
}

type ConfirmRequest struct {
	Phone string `json:"phone" binding:"required"`
}

func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := h.svc.Confirm(c.Request.Context(), req.Phone, c.Param("id")); err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "confirmed"})
}
