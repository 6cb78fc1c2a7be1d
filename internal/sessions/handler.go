// Package sessions proxies capture session lifecycle calls to the provider
// on behalf of the UI shell.
package sessions

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/screenloom/backend/internal/models"
	"github.com/screenloom/backend/internal/users"
	"github.com/screenloom/backend/pkg/capture"
	"github.com/screenloom/backend/pkg/response"
)

// WebhookAddress yields the public callback URL for new sessions; empty when
// the tunnel is down (the session is still created, just without callbacks).
type WebhookAddress interface {
	WebhookURL() string
}

// Handler handles capture session endpoints.
type Handler struct {
	cache    *capture.Cache
	tunnel   WebhookAddress
	tokenTTL int
	logger   *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(cache *capture.Cache, tunnel WebhookAddress, tokenTTLSec int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cache: cache, tunnel: tunnel, tokenTTL: tokenTTLSec, logger: logger}
}

// StartResponse is the body returned by POST /sessions/start.
type StartResponse struct {
	Session *capture.Session      `json:"session"`
	Token   *capture.SessionToken `json:"token"`
}

// Start handles POST /sessions/start: creates a provider capture session
// wired to the tunnel's webhook URL and issues a short-lived SDK token.
func (h *Handler) Start(c *gin.Context) {
	user := c.MustGet(users.ContextUserKey).(*models.User)
	client := h.cache.Get(user.APIKey)

	callback := h.tunnel.WebhookURL()
	if callback == "" {
		h.logger.Warn("tunnel inactive, session will not receive webhooks", zap.Int64("user_id", user.ID))
	}

	sess, err := client.CreateSession(c.Request.Context(), capture.CreateSessionRequest{
		EndUserID:   fmt.Sprintf("user-%d", user.ID),
		CallbackURL: callback,
		Metadata:    map[string]string{"source": "desktop"},
	})
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err), zap.Int64("user_id", user.ID))
		response.Internal(c, "failed to create capture session")
		return
	}

	token, err := client.IssueSessionToken(c.Request.Context(), h.tokenTTL)
	if err != nil {
		h.logger.Error("issue session token failed", zap.Error(err), zap.String("session_id", sess.SessionID))
		response.Internal(c, "failed to issue session token")
		return
	}

	h.logger.Info("capture session started", zap.String("session_id", sess.SessionID), zap.Int64("user_id", user.ID))
	response.OK(c, StartResponse{Session: sess, Token: token})
}

// Stop handles POST /sessions/:id/stop.
func (h *Handler) Stop(c *gin.Context) { h.action(c, "stop") }

// Pause handles POST /sessions/:id/pause.
func (h *Handler) Pause(c *gin.Context) { h.action(c, "pause") }

// Resume handles POST /sessions/:id/resume.
func (h *Handler) Resume(c *gin.Context) { h.action(c, "resume") }

func (h *Handler) action(c *gin.Context, action string) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, "missing session id")
		return
	}
	user := c.MustGet(users.ContextUserKey).(*models.User)
	client := h.cache.Get(user.APIKey)

	if err := client.SessionAction(c.Request.Context(), sessionID, action); err != nil {
		h.logger.Error("session action failed", zap.Error(err), zap.String("session_id", sessionID), zap.String("action", action))
		response.Internal(c, "failed to "+action+" session")
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "action": action})
}
