package alert

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

type AlertStore interface {
	Insert(ctx context.Context, a *Alert) error
	ListAll(ctx context.Context) ([]Alert, error)
	Resolve(ctx context.Context, id string) error
}

type Handler struct{ store AlertStore }

func RegisterRoutes(worker, admin gin.IRoutes, store AlertStore) {
	h := &Handler{store: store}

	worker.POST("/alerts", h.Create)

	admin.GET("/alerts", h.List)
	admin.POST("/alerts/:id/resolve", h.Resolve)
}

type CreateRequest struct {
	Phone       string   `json:"phone" binding:"required"`
	DisplayName string   `json:"display_name" binding:"required"`
	Message     string   `json:"message"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json or missing required fields"})
		return
	}

	a := &Alert{
		ID:             ulid.Make().String(),
		PrincipalPhone: req.Phone,
		DisplayName:    req.DisplayName,
		Message:        req.Message,
		Lat:            req.Lat,
		Lng:            req.Lng,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.store.Insert(c.Request.Context(), a); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record alert"})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c *gin.Context) {
	as, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, as)
}

func (h *Handler) Resolve(c *gin.Context) {
	if err := h.store.Resolve(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resolved"})
}
