package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/honestmeals/honestmeals/internal/models"
)

// ErrJobNotFound is returned when no status is recorded for the job ID.
var ErrJobNotFound = errors.New("plan job not found")

// PlanStatusUpdate is the tracked state of one plan-generation job
type PlanStatusUpdate struct {
	// JobID is the unique identifier for the job
	JobID string `json:"jobID"`
	// Status is the current job status (queued, generating, parsing, storing, complete, failed)
	Status string `json:"status"`
	// Error is any error message associated with the status update
	Error string `json:"error,omitempty"`
	// PlanID is set once the plan record has been stored
	PlanID string `json:"planID,omitempty"`
	// Timestamp is when the status update occurred
	Timestamp time.Time `json:"timestamp"`
	// RetryCount indicates how many times processing has been retried
	RetryCount int `json:"retryCount,omitempty"`
}

// PlanTracker records job status in Redis so the API can report progress
// while the worker runs.
type PlanTracker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewPlanTracker(redisClient *redis.Client, ttl time.Duration) *PlanTracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PlanTracker{redis: redisClient, ttl: ttl}
}

func planJobKey(jobID string) string {
	return fmt.Sprintf("plan-job:%s", jobID)
}

// Update records a status transition. Retry counts accumulate across updates
// of the same job.
func (t *PlanTracker) Update(ctx context.Context, jobID, status string, jobErr error) {
	update := PlanStatusUpdate{
		JobID:     jobID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if jobErr != nil {
		update.Error = jobErr.Error()
	}

	if prev, err := t.Get(ctx, jobID); err == nil {
		update.RetryCount = prev.RetryCount
		update.PlanID = prev.PlanID
		if status == models.PlanJobGenerating && prev.Status == models.PlanJobFailed {
			update.RetryCount++
		}
	}

	t.put(ctx, update)
}

// SetPlanID attaches the stored plan record to the job's status.
func (t *PlanTracker) SetPlanID(ctx context.Context, jobID, planID string) {
	update, err := t.Get(ctx, jobID)
	if err != nil {
		update = PlanStatusUpdate{JobID: jobID, Status: models.PlanJobStoring, Timestamp: time.Now().UTC()}
	}
	update.PlanID = planID
	t.put(ctx, update)
}

func (t *PlanTracker) put(ctx context.Context, update PlanStatusUpdate) {
	data, _ := json.Marshal(update)
	if err := t.redis.Set(ctx, planJobKey(update.JobID), data, t.ttl).Err(); err != nil {
		slog.Error("Failed to record plan job status", "jobID", update.JobID, "status", update.Status, "error", err)
	}
}

// Get returns the last recorded status for the job.
func (t *PlanTracker) Get(ctx context.Context, jobID string) (PlanStatusUpdate, error) {
	data, err := t.redis.Get(ctx, planJobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PlanStatusUpdate{}, ErrJobNotFound
		}
		return PlanStatusUpdate{}, fmt.Errorf("failed to read plan job status: %w", err)
	}

	var update PlanStatusUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return PlanStatusUpdate{}, fmt.Errorf("failed to decode plan job status: %w", err)
	}
	return update, nil
}
