package users

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/screenloom/backend/internal/models"
	"github.com/screenloom/backend/pkg/response"
)

// ContextUserKey is the gin context key under which the auth middleware
// stores the resolved *models.User.
const ContextUserKey = "user"

// ClientCache is the capture client cache surface the handler needs:
// credential verification on registration, wholesale reset on logout.
type ClientCache interface {
	VerifyKey(ctx context.Context, apiKey string) (bool, error)
	Clear()
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name   string `json:"name" binding:"required"`
	APIKey string `json:"api_key" binding:"required"`
}

// TokenResponse is the registration response with the local access token.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// SettingsResponse is the profile view for the settings screen.
type SettingsResponse struct {
	Name         string `json:"name"`
	APIKeyMasked string `json:"api_key_masked"`
}

// Handler handles registration, settings and logout for the UI shell.
type Handler struct {
	repo   *Repository
	cache  ClientCache
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo *Repository, cache ClientCache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, cache: cache, logger: logger}
}

// Register handles POST /auth/register. A key the provider rejects is a typed
// 401, not a transport error. Registering again with a known key reuses the
// existing user and its access token instead of minting a new one.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ok, err := h.cache.VerifyKey(c.Request.Context(), req.APIKey)
	if err != nil {
		h.logger.Error("credential verification failed", zap.Error(err))
		response.Internal(c, "credential verification failed")
		return
	}
	if !ok {
		response.Unauthorized(c, "invalid api key")
		return
	}

	existing, err := h.repo.GetByAPIKey(c.Request.Context(), req.APIKey)
	if err != nil {
		h.logger.Error("user lookup failed", zap.Error(err))
		response.Internal(c, "failed to look up user")
		return
	}
	if existing != nil {
		response.OK(c, TokenResponse{Token: existing.AccessToken, User: existing.ToPublic()})
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Name, req.APIKey, uuid.New().String())
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("name", user.Name))
	response.Created(c, TokenResponse{Token: user.AccessToken, User: user.ToPublic()})
}

// Logout handles POST /auth/logout: drops every cached provider connection.
func (h *Handler) Logout(c *gin.Context) {
	h.cache.Clear()
	response.NoContent(c)
}

// Settings handles GET /settings for the authenticated user.
func (h *Handler) Settings(c *gin.Context) {
	user := currentUser(c)
	response.OK(c, SettingsResponse{Name: user.Name, APIKeyMasked: maskKey(user.APIKey)})
}

// UpdateSettingsRequest is the body for PATCH /settings.
type UpdateSettingsRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateSettings handles PATCH /settings (display name rotation only).
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user := currentUser(c)
	if err := h.repo.UpdateName(c.Request.Context(), user.ID, req.Name); err != nil {
		h.logger.Error("update name failed", zap.Error(err), zap.Int64("user_id", user.ID))
		response.Internal(c, "failed to update settings")
		return
	}
	user.Name = req.Name
	response.OK(c, SettingsResponse{Name: user.Name, APIKeyMasked: maskKey(user.APIKey)})
}

// currentUser returns the user the auth middleware resolved.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ContextUserKey).(*models.User)
}

// maskKey hides all but the last four characters of a credential.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
