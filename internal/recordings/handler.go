package recordings

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/screenloom/backend/pkg/response"
)

// maxListLimit caps history listings regardless of the requested limit.
const maxListLimit = 200

// Handler handles recording HTTP endpoints for the UI shell.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /recordings?limit=N. Most recent first; rows stuck in
// processing or failed are surfaced as-is, there is no re-run here.
func (h *Handler) List(c *gin.Context) {
	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	list, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, list)
}
