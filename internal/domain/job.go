package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionJob is the artifact enqueued by the orchestrator and consumed by
// a Worker. The Job Queue owns job records; the Order Store owns all
// durable order state.
type ExecutionJob struct {
	JobID     string    `json:"jobId"`
	OrderID   uuid.UUID `json:"orderId"`
	Attempt   int       `json:"attempt"` // 1-based, set by the queue
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
