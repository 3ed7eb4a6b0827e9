package department

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/departments", h.Create)
	r.GET("/departments", h.List)
	r.DELETE("/departments/:id", h.Delete)
}

type CreateRequest struct {
	Name     string  `json:"name" binding:"required"`
	Type     string  `json:"type" binding:"required"`
	ParentID *string `json:"parent_id,omitempty"`
}

type DepartmentResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	ParentID *string `json:"parent_id,omitempty"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	d, err := h.svc.Create(c.Request.Context(), req.Name, req.Type, req.ParentID)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, DepartmentResponse{ID: d.ID, Name: d.Name, Type: d.Type, ParentID: d.ParentID})
}

func (h *Handler) List(c *gin.Context) {
	ds, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	out := make([]DepartmentResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DepartmentResponse{ID: d.ID, Name: d.Name, Type: d.Type, ParentID: d.ParentID})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Delete(c *gin.Context) {
	n, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
