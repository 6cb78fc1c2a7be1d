// Package queue is an in-process job queue for detached background work.
// It keeps the job-envelope shape of a broker-backed queue but runs on a
// channel: the backend is a single-user desktop process and cannot assume an
// external broker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCapacity bounds the number of queued (not yet dequeued) jobs.
const DefaultCapacity = 64

// ErrQueueFull is returned when Enqueue would block.
var ErrQueueFull = errors.New("queue full")

// JobType identifies the job kind.
type JobType string

// JobTypeEnrich runs the post-recording enrichment pipeline.
const JobTypeEnrich JobType = "enrich"

// EnrichPayload is the payload for enrichment jobs.
type EnrichPayload struct {
	RecordingID int64  `json:"recording_id"`
	VideoID     string `json:"video_id"`
	APIKey      string `json:"api_key"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs. At most one enrichment per recording id
// is queued or in flight at a time; a re-finalized session cannot race a
// still-running enrichment on the same row.
type Queue struct {
	jobs   chan *Job
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[int64]bool
}

// New creates an in-process job queue. capacity <= 0 uses DefaultCapacity.
func New(capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		jobs:     make(chan *Job, capacity),
		logger:   logger,
		inflight: make(map[int64]bool),
	}
}

// EnqueueEnrich enqueues an enrichment job without blocking the caller.
// A duplicate for a recording already queued or in flight is silently dropped.
func (q *Queue) EnqueueEnrich(payload EnrichPayload) error {
	q.mu.Lock()
	if q.inflight[payload.RecordingID] {
		q.mu.Unlock()
		q.logger.Debug("enrichment already in flight, skipping", zap.Int64("recording_id", payload.RecordingID))
		return nil
	}
	q.inflight[payload.RecordingID] = true
	q.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		q.release(payload.RecordingID)
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      JobTypeEnrich,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	select {
	case q.jobs <- job:
		q.logger.Debug("enqueued enrichment job", zap.String("job_id", job.ID), zap.Int64("recording_id", payload.RecordingID))
		return nil
	default:
		q.release(payload.RecordingID)
		return ErrQueueFull
	}
}

// Dequeue blocks until a job is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case job := <-q.jobs:
		return job, nil
	}
}

// Done marks a recording's enrichment finished so a later webhook can
// schedule it again. Workers must call this after processing.
func (q *Queue) Done(recordingID int64) {
	q.release(recordingID)
}

func (q *Queue) release(recordingID int64) {
	q.mu.Lock()
	delete(q.inflight, recordingID)
	q.mu.Unlock()
}
