package tunnel

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes tunnel state over HTTP.
type Handler struct {
	tunnel *Tunnel
}

// NewHandler creates a tunnel handler.
func NewHandler(t *Tunnel) *Handler {
	return &Handler{tunnel: t}
}

// GetStatus handles GET /tunnel/status.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.tunnel.Status())
}
