package recordings

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/screenloom/backend/internal/models"
	"github.com/screenloom/backend/pkg/queue"
)

// CredentialSource yields the credential used for enrichment. Export events
// carry no user identity, so the most recently registered user's key is used
// (single-user desktop context).
type CredentialSource interface {
	Latest(ctx context.Context) (*models.User, error)
}

// Notifier pushes a changed recording to the UI shell. May be nil.
type Notifier interface {
	NotifyRecording(rec *models.Recording)
}

// ExportEvent is the reconciliation input extracted from an export webhook.
type ExportEvent struct {
	SessionID string
	VideoID   string
	StreamURL string
	PlayerURL string
}

// Correlator maps inbound export events onto recording rows: it owns the
// dedup/idempotency policy and hands completed rows to the enrichment queue.
type Correlator struct {
	repo   *Repository
	users  CredentialSource
	queue  *queue.Queue
	notify Notifier
	logger *zap.Logger

	// mu serializes the lookup-or-create unit; together with the unique
	// indexes on session_id/video_id this closes the double-insert window
	// between two near-simultaneous webhooks for a brand-new session.
	mu sync.Mutex
}

// NewCorrelator creates a correlator.
func NewCorrelator(repo *Repository, users CredentialSource, q *queue.Queue, notify Notifier, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{repo: repo, users: users, queue: q, notify: notify, logger: logger}
}

// HandleExportEvent reconciles one export event against the store.
//
// Session-id match takes priority over video-id match: a session can be
// re-finalized with a corrected video id before the original video id is ever
// observed. A video-id match under a different session is a duplicate
// delivery and a no-op. The returned recording is nil for recognized partial
// events (missing video id); errors are reserved for storage failures.
func (c *Correlator) HandleExportEvent(ctx context.Context, evt ExportEvent) (*models.Recording, error) {
	if evt.VideoID == "" {
		c.logger.Info("export event without video id, ignoring", zap.String("session_id", evt.SessionID))
		return nil, nil
	}

	rec, duplicate, err := c.reconcile(ctx, evt)
	if err != nil {
		return nil, err
	}
	if duplicate {
		c.logger.Info("duplicate export event, recording already exists",
			zap.Int64("recording_id", rec.ID), zap.String("video_id", evt.VideoID))
		return rec, nil
	}

	if c.notify != nil {
		c.notify.NotifyRecording(rec)
	}
	c.scheduleEnrichment(ctx, rec)
	return rec, nil
}

// reconcile runs the lookup-or-create unit as one critical section. No
// blocking external call happens while the lock is held; store operations are
// local and fast.
func (c *Correlator) reconcile(ctx context.Context, evt ExportEvent) (rec *models.Recording, duplicate bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.repo.GetBySessionID(ctx, evt.SessionID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup by session id: %w", err)
	}
	if existing != nil {
		// Re-delivery or finalization for a tracked session: update in place
		// and restart the enrichment lifecycle.
		fields := map[string]interface{}{
			"video_id":        evt.VideoID,
			"stream_url":      evt.StreamURL,
			"player_url":      evt.PlayerURL,
			"insights_status": models.InsightsStatusPending,
		}
		if err := c.repo.Update(ctx, existing.ID, fields); err != nil {
			return nil, false, fmt.Errorf("update recording: %w", err)
		}
	} else {
		byVideo, err := c.repo.GetByVideoID(ctx, evt.VideoID)
		if err != nil {
			return nil, false, fmt.Errorf("lookup by video id: %w", err)
		}
		if byVideo != nil {
			return byVideo, true, nil
		}
		created := &models.Recording{
			VideoID:        evt.VideoID,
			StreamURL:      evt.StreamURL,
			PlayerURL:      evt.PlayerURL,
			SessionID:      evt.SessionID,
			InsightsStatus: models.InsightsStatusPending,
		}
		if err := c.repo.Create(ctx, created); err != nil {
			return nil, false, fmt.Errorf("create recording: %w", err)
		}
	}

	// Re-read by video id so the update and create paths yield the row (and
	// its local id) uniformly.
	rec, err = c.repo.GetByVideoID(ctx, evt.VideoID)
	if err != nil {
		return nil, false, fmt.Errorf("re-read recording: %w", err)
	}
	if rec == nil {
		return nil, false, fmt.Errorf("recording vanished after write: video_id=%s", evt.VideoID)
	}
	return rec, false, nil
}

// scheduleEnrichment hands the recording to the background pipeline without
// blocking webhook acknowledgment. No registered user means no credential:
// the row stays pending.
func (c *Correlator) scheduleEnrichment(ctx context.Context, rec *models.Recording) {
	user, err := c.users.Latest(ctx)
	if err != nil {
		c.logger.Warn("credential lookup failed, skipping enrichment", zap.Error(err), zap.Int64("recording_id", rec.ID))
		return
	}
	if user == nil {
		c.logger.Info("no registered user, skipping enrichment", zap.Int64("recording_id", rec.ID))
		return
	}
	payload := queue.EnrichPayload{RecordingID: rec.ID, VideoID: rec.VideoID, APIKey: user.APIKey}
	if err := c.queue.EnqueueEnrich(payload); err != nil {
		c.logger.Error("enqueue enrichment failed", zap.Error(err), zap.Int64("recording_id", rec.ID))
	}
}
