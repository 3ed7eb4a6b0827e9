package site

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"safesite-backend/internal/geofence"
)

type Handler struct{ store *Store }

func RegisterRoutes(r gin.IRoutes, store *Store) {
	h := &Handler{store: store}
	r.GET("/site-config", h.Get)
	r.PUT("/site-config", h.Update)
}

func (h *Handler) Get(c *gin.Context) {
	cfg, err := h.store.GetConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load site config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type UpdateRequest struct {
	Lat            *float64 `json:"lat" binding:"required"`
	Lng            *float64 `json:"lng" binding:"required"`
	AllowedRadiusM *float64 `json:"allowed_radius_m" binding:"required"`
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	center := geofence.Point{Lat: *req.Lat, Lng: *req.Lng}
	if err := center.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.AllowedRadiusM <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "allowed_radius_m must be positive"})
		return
	}

	if err := h.store.UpdateConfig(c.Request.Context(), center, *req.AllowedRadiusM); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
