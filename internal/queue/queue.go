// Package queue implements the Job Queue: a durable, retryable FIFO of
// execution jobs with exponential backoff, stall reclaim, and
// dead-lettering, backed by Redis Streams (grounded on
// pkg/database/redis.go's go-redis v9 client).
package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/swapengine/engine/internal/config"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/database"
	"github.com/swapengine/engine/pkg/observability"
)

// Lease is a handle to one reserved stream entry: the data needed to ack,
// nack, or reclaim it.
type Lease struct {
	Job       domain.ExecutionJob
	MessageID string
}

// Queue is a durable FIFO of execution jobs with at-least-once delivery.
type Queue struct {
	redis  *database.RedisClient
	cfg    config.QueueConfig
	logger *observability.Logger
}

// New creates a Job Queue over an already-connected Redis client. Call
// EnsureGroup once at startup before Reserve.
func New(redisClient *database.RedisClient, cfg config.QueueConfig, logger *observability.Logger) *Queue {
	return &Queue{redis: redisClient, cfg: cfg, logger: logger}
}

// EnsureGroup creates the consumer group for the configured stream if it
// does not already exist.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.redis.XGroupCreateMkStream(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && (err.Error() == "BUSYGROUP Consumer Group name already exists")
}

// Depth reports the number of entries currently on the stream, including
// ones already claimed but not yet acked.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.redis.XLen(ctx, q.cfg.StreamName).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}

const inflightKeyPrefix = "swapengine:inflight:"

// Enqueue durably accepts a job for orderID, returning a domain.KindConflict
// error if one is already live for that order — the
// dedup-on-enqueue mechanism that enforces per-order serial execution
// so retries stay ordered behind not-yet-due entries.
func (q *Queue) Enqueue(ctx context.Context, orderID uuid.UUID) (domain.ExecutionJob, error) {
	inflightKey := inflightKeyPrefix + orderID.String()
	ok, err := q.redis.SetNX(ctx, inflightKey, "1", 0).Result()
	if err != nil {
		return domain.ExecutionJob{}, domain.Wrap(domain.KindInternal, "enqueue: set inflight key", err)
	}
	if !ok {
		return domain.ExecutionJob{}, domain.NewError(domain.KindConflict, "order already has a job in flight")
	}

	now := time.Now().UTC()
	values := map[string]interface{}{
		"orderId":    orderID.String(),
		"attempt":    1,
		"enqueuedAt": now.Format(time.RFC3339Nano),
		"notBefore":  now.Format(time.RFC3339Nano),
	}
	id, err := q.redis.XAdd(ctx, &redis.XAddArgs{Stream: q.cfg.StreamName, Values: values}).Result()
	if err != nil {
		q.redis.Del(ctx, inflightKey)
		return domain.ExecutionJob{}, domain.Wrap(domain.KindInternal, "enqueue: xadd", err)
	}

	job := domain.ExecutionJob{JobID: id, OrderID: orderID, Attempt: 1, EnqueuedAt: now}
	return job, nil
}

// Reserve blocks (up to block) for the next due job for this consumer,
// returning nil, nil on timeout with no job available. If the entry read
// has a notBefore that has not yet arrived, Reserve also returns nil, nil
// and does not try another entry; the unacked entry stays in this
// consumer's pending list, later Reserve calls do not deliver it again, and
// it is only picked up by ReclaimStalled once it has been idle for the
// stall timeout. ReclaimStalled does not check notBefore.
func (q *Queue) Reserve(ctx context.Context, consumer string, block time.Duration) (*Lease, error) {
	res, err := q.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.ConsumerGroup,
		Consumer: consumer,
		Streams:  []string{q.cfg.StreamName, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindServiceUnavailable, "reserve job", err)
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, nil
	}

	msg := res[0].Messages[0]
	job, notBefore, err := parseJob(msg)
	if err != nil {
		return nil, err
	}

	if time.Now().UTC().Before(notBefore) {
		// Not due yet: leave it in the pending list for ReclaimStalled.
		return nil, nil
	}

	return &Lease{Job: job, MessageID: msg.ID}, nil
}

func parseJob(msg redis.XMessage) (domain.ExecutionJob, time.Time, error) {
	orderIDStr, _ := msg.Values["orderId"].(string)
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		return domain.ExecutionJob{}, time.Time{}, domain.Wrap(domain.KindInternal, "parse job orderId", err)
	}
	attempt := 1
	if v, ok := msg.Values["attempt"].(string); ok {
		if n, convErr := strconv.Atoi(v); convErr == nil {
			attempt = n
		}
	}
	enqueuedAt := time.Now().UTC()
	if v, ok := msg.Values["enqueuedAt"].(string); ok {
		if t, parseErr := time.Parse(time.RFC3339Nano, v); parseErr == nil {
			enqueuedAt = t
		}
	}
	notBefore := enqueuedAt
	if v, ok := msg.Values["notBefore"].(string); ok {
		if t, parseErr := time.Parse(time.RFC3339Nano, v); parseErr == nil {
			notBefore = t
		}
	}
	job := domain.ExecutionJob{
		JobID:      msg.ID,
		OrderID:    orderID,
		Attempt:    attempt,
		EnqueuedAt: enqueuedAt,
	}
	return job, notBefore, nil
}

// Ack acknowledges successful (or terminally-failed) processing, removing
// the entry from the stream and releasing the per-order dedup key.
func (q *Queue) Ack(ctx context.Context, lease *Lease) error {
	pipe := q.redis.TxPipeline()
	pipe.XAck(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, lease.MessageID)
	pipe.XDel(ctx, q.cfg.StreamName, lease.MessageID)
	pipe.Del(ctx, inflightKeyPrefix+lease.Job.OrderID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Wrap(domain.KindInternal, "ack job", err)
	}
	return nil
}

// Nack reports a failed attempt. If attempts remain, the job is requeued
// with exponential backoff (base 5s, multiplier 2) and the per-order dedup
// key is kept so no second worker can pick up the same order meanwhile. If
// attempts are exhausted, the job moves to the dead-letter stream and the
// dedup key is released.
func (q *Queue) Nack(ctx context.Context, lease *Lease, cause error) error {
	pipe := q.redis.TxPipeline()
	pipe.XAck(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, lease.MessageID)
	pipe.XDel(ctx, q.cfg.StreamName, lease.MessageID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Wrap(domain.KindInternal, "nack: remove original entry", err)
	}

	if lease.Job.Attempt >= q.cfg.MaxAttempts {
		return q.deadLetter(ctx, lease, cause)
	}

	delay := time.Duration(float64(q.cfg.BaseBackoff) * math.Pow(q.cfg.BackoffMultiplier, float64(lease.Job.Attempt-1)))
	notBefore := time.Now().UTC().Add(delay)
	values := map[string]interface{}{
		"orderId":    lease.Job.OrderID.String(),
		"attempt":    lease.Job.Attempt + 1,
		"enqueuedAt": lease.Job.EnqueuedAt.Format(time.RFC3339Nano),
		"notBefore":  notBefore.Format(time.RFC3339Nano),
		"lastError":  cause.Error(),
	}
	if err := q.redis.XAdd(ctx, &redis.XAddArgs{Stream: q.cfg.StreamName, Values: values}).Err(); err != nil {
		return domain.Wrap(domain.KindInternal, "nack: requeue with backoff", err)
	}
	return nil
}

func (q *Queue) deadLetter(ctx context.Context, lease *Lease, cause error) error {
	deadStream := q.cfg.StreamName + ":dead"
	values := map[string]interface{}{
		"orderId":   lease.Job.OrderID.String(),
		"attempt":   lease.Job.Attempt,
		"diedAt":    time.Now().UTC().Format(time.RFC3339Nano),
		"lastError": cause.Error(),
	}
	if err := q.redis.XAdd(ctx, &redis.XAddArgs{Stream: deadStream, Values: values}).Err(); err != nil {
		return domain.Wrap(domain.KindInternal, "dead-letter job", err)
	}
	if err := q.redis.Del(ctx, inflightKeyPrefix+lease.Job.OrderID.String()).Err(); err != nil {
		return domain.Wrap(domain.KindInternal, "dead-letter: release inflight key", err)
	}
	return nil
}

// ReclaimStalled claims pending entries idle longer than the configured
// stall timeout for consumer, returning them as fresh leases so a worker
// that died mid-lease does not strand its job forever.
func (q *Queue) ReclaimStalled(ctx context.Context, consumer string) ([]*Lease, error) {
	messages, _, err := q.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.StreamName,
		Group:    q.cfg.ConsumerGroup,
		Consumer: consumer,
		MinIdle:  q.cfg.StallTimeout,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "reclaim stalled jobs", err)
	}

	leases := make([]*Lease, 0, len(messages))
	for _, msg := range messages {
		job, _, parseErr := parseJob(msg)
		if parseErr != nil {
			continue
		}
		leases = append(leases, &Lease{Job: job, MessageID: msg.ID})
	}
	return leases, nil
}
