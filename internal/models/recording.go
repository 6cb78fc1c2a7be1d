package models

import "time"

// InsightsStatus represents the enrichment lifecycle of a recording.
// pending → processing → {ready, failed}; only a new export webhook for the
// same capture session moves a row out of a terminal state (back to pending).
const (
	InsightsStatusPending    = "pending"
	InsightsStatusProcessing = "processing"
	InsightsStatusReady      = "ready"
	InsightsStatusFailed     = "failed"
)

// Recording is a finalized capture session tracked locally (provider-hosted media).
type Recording struct {
	ID             int64     `json:"id"`
	VideoID        string    `json:"video_id,omitempty"`
	StreamURL      string    `json:"stream_url,omitempty"`
	PlayerURL      string    `json:"player_url,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	Duration       *float64  `json:"duration,omitempty"`
	Insights       string    `json:"insights,omitempty"` // opaque serialized blob, e.g. {"transcript": ...}
	InsightsStatus string    `json:"insights_status"`
	CreatedAt      time.Time `json:"created_at"`
}
