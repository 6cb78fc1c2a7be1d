package recordings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/screenloom/backend/internal/models"
)

// DefaultListLimit bounds history listings when the caller gives no limit.
const DefaultListLimit = 50

// Repository handles recording persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a recordings repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordingColumns = `id, COALESCE(video_id,''), COALESCE(stream_url,''), COALESCE(player_url,''), COALESCE(session_id,''), duration, COALESCE(insights,''), insights_status, created_at`

// Create inserts a new recording and fills in its assigned id and timestamp.
// Empty session/video ids are stored as NULL so the unique indexes only bind
// real provider identifiers.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	now := unixNow()
	const q = `INSERT INTO recordings (video_id, stream_url, player_url, session_id, duration, insights, insights_status, created_at)
		VALUES (NULLIF(?,''), ?, ?, NULLIF(?,''), ?, NULLIF(?,''), ?, ?)`
	if rec.InsightsStatus == "" {
		rec.InsightsStatus = models.InsightsStatusPending
	}
	res, err := r.db.ExecContext(ctx, q, rec.VideoID, rec.StreamURL, rec.PlayerURL, rec.SessionID, rec.Duration, rec.Insights, rec.InsightsStatus, now)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert recording id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = timeFromUnix(now)
	return nil
}

// GetByID returns a recording by local id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Recording, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	return scanRecording(row)
}

// GetBySessionID returns the recording for a capture session id, or nil.
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*models.Recording, error) {
	if sessionID == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE session_id = ?`, sessionID)
	return scanRecording(row)
}

// GetByVideoID returns the recording for a provider video id, or nil.
func (r *Repository) GetByVideoID(ctx context.Context, videoID string) (*models.Recording, error) {
	if videoID == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE video_id = ?`, videoID)
	return scanRecording(row)
}

// updatableColumns guards Update against arbitrary SET targets.
var updatableColumns = map[string]bool{
	"video_id":        true,
	"stream_url":      true,
	"player_url":      true,
	"session_id":      true,
	"duration":        true,
	"insights":        true,
	"insights_status": true,
}

// Update applies a partial-field update; absent fields are left untouched.
func (r *Repository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for col, val := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("update recording: unknown column %q", col)
		}
		if (col == "video_id" || col == "session_id") && val == "" {
			val = nil
		}
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	args = append(args, id)
	q := `UPDATE recordings SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return nil
}

// List returns at most limit recordings, most recent first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Recording, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		rec, err := scanRecordingRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecordingRow(row rowScanner) (*models.Recording, error) {
	var rec models.Recording
	var duration sql.NullFloat64
	var createdAt float64
	err := row.Scan(&rec.ID, &rec.VideoID, &rec.StreamURL, &rec.PlayerURL, &rec.SessionID, &duration, &rec.Insights, &rec.InsightsStatus, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	if duration.Valid {
		d := duration.Float64
		rec.Duration = &d
	}
	rec.CreatedAt = timeFromUnix(createdAt)
	return &rec, nil
}

func scanRecording(row *sql.Row) (*models.Recording, error) {
	rec, err := scanRecordingRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// unixNow returns the current time as fractional unix seconds (sub-second
// resolution keeps history ordering stable for back-to-back inserts).
func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func timeFromUnix(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9)).UTC()
}
