package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of audit/notification event tags the
// orchestrator may emit.
type EventType string

const (
	EventOrderCreated       EventType = "order:created"
	EventOrderStatusChanged EventType = "order:status-changed"
	EventOrderFailed        EventType = "order:failed"
	EventOrderConfirmed     EventType = "order:confirmed"
	EventExecStarted        EventType = "execution:started"
	EventExecQuotesFetched  EventType = "execution:quotes-fetched"
	EventExecDexSelected    EventType = "execution:dex-selected"
	EventExecSwapSubmitted  EventType = "execution:swap-submitted"
	EventExecSwapConfirmed  EventType = "execution:swap-confirmed"
	EventExecFailed         EventType = "execution:failed"
	EventExecRetrying       EventType = "execution:retrying"
	EventQueueJobAdded      EventType = "queue:job-added"
	EventSystemError        EventType = "system:error"
)

// AuditRecord is an immutable, append-only audit log entry. Ordered per
// order by (Timestamp, EventVersion).
type AuditRecord struct {
	ID           uuid.UUID              `json:"id"`
	OrderID      uuid.UUID              `json:"orderId"`
	EventType    EventType              `json:"eventType"`
	EventData    map[string]interface{} `json:"eventData"`
	EventVersion int                    `json:"eventVersion"`
	Timestamp    time.Time              `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
