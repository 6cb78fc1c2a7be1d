package recordings

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/screenloom/backend/pkg/response"
)

// EventSessionExported is the provider event that finalizes a capture session.
const EventSessionExported = "capture_session.exported"

// exportedSuffix matches the exported-event family; other session lifecycle
// events (started, paused, ...) are acknowledged without any state change.
const exportedSuffix = "exported"

// WebhookPayload is the provider webhook body.
type WebhookPayload struct {
	Event            string `json:"event"`
	CaptureSessionID string `json:"capture_session_id"`
	Data             struct {
		ExportedVideoID string `json:"exported_video_id"`
		StreamURL       string `json:"stream_url"`
		PlayerURL       string `json:"player_url"`
	} `json:"data"`
}

// WebhookHandler receives capture lifecycle webhooks through the tunnel.
// There is no signature verification on this endpoint; the provider offers
// none for these events.
type WebhookHandler struct {
	correlator *Correlator
	logger     *zap.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(correlator *Correlator, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{correlator: correlator, logger: logger}
}

// Receive handles POST /webhook. Application-level anomalies (unknown event,
// missing video id, duplicate delivery) are always acknowledged with 200 so
// the provider does not retry conditions the system already handled; only
// body-parse and storage failures surface as 500.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var body WebhookPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("webhook body parse failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "received": false})
		return
	}

	if !strings.HasSuffix(body.Event, exportedSuffix) {
		h.logger.Info("ignoring webhook event", zap.String("event", body.Event))
		response.Ack(c)
		return
	}
	if body.Event != EventSessionExported {
		h.logger.Info("unhandled exported event", zap.String("event", body.Event))
		response.Ack(c)
		return
	}

	evt := ExportEvent{
		SessionID: body.CaptureSessionID,
		VideoID:   body.Data.ExportedVideoID,
		StreamURL: body.Data.StreamURL,
		PlayerURL: body.Data.PlayerURL,
	}
	rec, err := h.correlator.HandleExportEvent(c.Request.Context(), evt)
	if err != nil {
		h.logger.Error("export event handling failed", zap.Error(err), zap.String("session_id", evt.SessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "received": false})
		return
	}
	if rec != nil {
		h.logger.Info("export event processed",
			zap.Int64("recording_id", rec.ID),
			zap.String("session_id", evt.SessionID),
			zap.String("video_id", evt.VideoID))
	}
	response.Ack(c)
}
