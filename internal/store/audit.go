package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/swapengine/engine/internal/domain"
)

// AppendAudit persists one audit record. Idempotent by (orderId,
// eventVersion): a duplicate insert is treated as a no-op, never an error,
// so at-least-once redelivery that re-emits an already-recorded event does
// not fail the job.
func (s *OrderStore) AppendAudit(ctx context.Context, record domain.AuditRecord) error {
	data, err := json.Marshal(record.EventData)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "marshal audit event data", err)
	}
	meta, err := json.Marshal(record.Metadata)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "marshal audit metadata", err)
	}

	const q = `
		INSERT INTO order_history (id, order_id, event_type, event_data, event_version, timestamp, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (order_id, event_version) DO NOTHING`
	_, err = s.db.ExecContext(ctx, q, record.ID, record.OrderID, record.EventType, data, record.EventVersion, record.Timestamp, meta)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "append audit record", err)
	}
	return nil
}

// AuditHistory returns the ordered audit trail for one order, satisfying
// GET /api/orders/:id/history.
func (s *OrderStore) AuditHistory(ctx context.Context, orderID uuid.UUID) ([]domain.AuditRecord, error) {
	const q = `
		SELECT id, order_id, event_type, event_data, event_version, timestamp, metadata
		FROM order_history WHERE order_id = $1
		ORDER BY timestamp ASC, event_version ASC`
	rows, err := s.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "query audit history", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var r domain.AuditRecord
		var data, meta []byte
		if err := rows.Scan(&r.ID, &r.OrderID, &r.EventType, &data, &r.EventVersion, &r.Timestamp, &meta); err != nil {
			return nil, domain.Wrap(domain.KindInternal, "scan audit record", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &r.EventData)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &r.Metadata)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// AsListener adapts the OrderStore's audit append into an audit.Listener
// without the store package importing the audit package, keeping the
// dependency direction store -> none.
func (s *OrderStore) AsListener() func(ctx context.Context, record domain.AuditRecord) {
	return func(ctx context.Context, record domain.AuditRecord) {
		_ = s.AppendAudit(ctx, record)
	}
}
