// Package enrich runs the post-recording enrichment pipeline: spoken-word
// indexing, transcript extraction and subtitle burn-in through the provider,
// folding results back into the recording row.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/screenloom/backend/internal/models"
	"github.com/screenloom/backend/internal/recordings"
	"github.com/screenloom/backend/pkg/capture"
	"github.com/screenloom/backend/pkg/queue"
)

// DefaultSubtitleStyle is the fixed burn-in style for generated subtitles.
var DefaultSubtitleStyle = capture.SubtitleStyle{
	FontName:      "Roboto",
	FontSize:      22,
	PrimaryColour: "&H00FFFFFF",
	Alignment:     "bottom_center",
}

// IndexingClient is the slice of the provider API the pipeline needs.
type IndexingClient interface {
	FindVideo(ctx context.Context, videoID string) (*capture.Video, error)
	IndexSpokenWords(ctx context.Context, videoID string) error
	TranscriptText(ctx context.Context, videoID string) (string, error)
	SubtitledStream(ctx context.Context, videoID string, style capture.SubtitleStyle) (string, error)
}

// Notifier pushes a changed recording to the UI shell. May be nil.
type Notifier interface {
	NotifyRecording(rec *models.Recording)
}

// Pipeline processes enrichment jobs. Single attempt, no retries: every
// outcome is persisted as an insights_status transition, never returned to
// the scheduling caller.
type Pipeline struct {
	repo    *recordings.Repository
	queue   *queue.Queue
	clients func(apiKey string) IndexingClient
	notify  Notifier
	logger  *zap.Logger
}

// NewPipeline creates the enrichment pipeline. clients resolves an API key to
// a provider client (normally the capture client cache).
func NewPipeline(repo *recordings.Repository, q *queue.Queue, clients func(apiKey string) IndexingClient, notify Notifier, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{repo: repo, queue: q, clients: clients, notify: notify, logger: logger}
}

// Run starts the worker loop: dequeue, process, release the dedup slot.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Info("enrichment worker stopping")
			return
		}
		var payload queue.EnrichPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			p.logger.Warn("invalid enrichment payload", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		p.logger.Debug("processing enrichment job", zap.String("job_id", job.ID), zap.Int64("recording_id", payload.RecordingID))
		p.Process(ctx, payload)
		p.queue.Done(payload.RecordingID)
	}
}

// Process runs one enrichment attempt for a recording. The status moves to
// processing before any external call, then to exactly one of ready/failed.
func (p *Pipeline) Process(ctx context.Context, payload queue.EnrichPayload) {
	rec, err := p.repo.GetByID(ctx, payload.RecordingID)
	if err != nil || rec == nil {
		p.logger.Error("recording not found for enrichment", zap.Int64("recording_id", payload.RecordingID), zap.Error(err))
		return
	}

	if err := p.setStatus(ctx, rec.ID, models.InsightsStatusProcessing, nil); err != nil {
		p.logger.Error("mark processing failed", zap.Error(err), zap.Int64("recording_id", rec.ID))
		return
	}

	client := p.clients(payload.APIKey)
	fields, err := p.enrich(ctx, client, rec, payload.VideoID)
	if err != nil {
		p.logger.Warn("enrichment failed", zap.Error(err), zap.Int64("recording_id", rec.ID), zap.String("video_id", payload.VideoID))
		p.fail(ctx, rec.ID)
		return
	}

	if err := p.setStatus(ctx, rec.ID, models.InsightsStatusReady, fields); err != nil {
		p.logger.Error("persist enrichment result failed", zap.Error(err), zap.Int64("recording_id", rec.ID))
		p.fail(ctx, rec.ID)
		return
	}
	p.logger.Info("enrichment completed", zap.Int64("recording_id", rec.ID), zap.String("video_id", payload.VideoID))
}

// enrich performs the external calls and collects the row fields to persist.
// Any error fails the whole attempt; empty transcript or subtitle results are
// partial success, not errors.
func (p *Pipeline) enrich(ctx context.Context, client IndexingClient, rec *models.Recording, videoID string) (map[string]interface{}, error) {
	video, err := client.FindVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("find video: %w", err)
	}
	if video == nil {
		return nil, capture.ErrVideoNotFound
	}

	if err := client.IndexSpokenWords(ctx, videoID); err != nil {
		return nil, fmt.Errorf("index spoken words: %w", err)
	}

	fields := map[string]interface{}{}
	if video.Duration != nil {
		fields["duration"] = *video.Duration
	}

	transcript, err := client.TranscriptText(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	if transcript != "" {
		insights, err := json.Marshal(map[string]string{"transcript": transcript})
		if err != nil {
			return nil, fmt.Errorf("marshal insights: %w", err)
		}
		fields["insights"] = string(insights)
	}

	subtitleURL, err := client.SubtitledStream(ctx, videoID, DefaultSubtitleStyle)
	if err != nil {
		return nil, fmt.Errorf("subtitled stream: %w", err)
	}
	if subtitleURL != "" {
		fields["stream_url"] = subtitleURL
		fields["player_url"] = rewritePlayerURL(rec.PlayerURL, subtitleURL)
	}

	return fields, nil
}

// setStatus persists a status transition plus any extra fields, then notifies
// the UI with the fresh row.
func (p *Pipeline) setStatus(ctx context.Context, id int64, status string, extra map[string]interface{}) error {
	fields := map[string]interface{}{"insights_status": status}
	for k, v := range extra {
		fields[k] = v
	}
	if err := p.repo.Update(ctx, id, fields); err != nil {
		return err
	}
	if p.notify != nil {
		if rec, err := p.repo.GetByID(ctx, id); err == nil && rec != nil {
			p.notify.NotifyRecording(rec)
		}
	}
	return nil
}

// fail marks the row failed. The pipeline runs detached, so a failure to even
// persist the failed status is swallowed after logging.
func (p *Pipeline) fail(ctx context.Context, id int64) {
	if err := p.setStatus(ctx, id, models.InsightsStatusFailed, nil); err != nil {
		p.logger.Error("persist failed status failed", zap.Error(err), zap.Int64("recording_id", id))
	}
}

// rewritePlayerURL swaps the media reference inside a player URL for the
// subtitled stream. When the player URL embeds the stream in a url= query
// parameter, only that parameter is rewritten so playback options survive;
// otherwise the subtitled stream replaces the player URL outright.
func rewritePlayerURL(playerURL, subtitleURL string) string {
	if playerURL == "" {
		return subtitleURL
	}
	parsed, err := url.Parse(playerURL)
	if err != nil {
		return subtitleURL
	}
	q := parsed.Query()
	if !q.Has("url") {
		return subtitleURL
	}
	q.Set("url", subtitleURL)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
