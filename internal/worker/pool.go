// Package worker implements the bounded worker pool that drains the job
// queue and hands each leased job to a Processor.
package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/internal/queue"
	"github.com/swapengine/engine/pkg/observability"
	"golang.org/x/time/rate"
)

// Processor executes one leased job to completion. A returned error is
// treated as a failed attempt and triggers Nack; nil triggers Ack.
type Processor interface {
	Process(ctx context.Context, job domain.ExecutionJob) error
}

// Pool runs a fixed number of workers pulling leases from a Queue, each
// gated by a shared start-rate limiter.
type Pool struct {
	queue     *queue.Queue
	processor Processor
	logger    *observability.Logger
	metrics   *observability.MetricsProvider
	limiter   *rate.Limiter
	workers   int

	consumerPrefix string
	stallInterval  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a Pool with workers concurrent goroutines, each allowed to
// start a job no faster than startsPerSecond across the whole pool.
func New(q *queue.Queue, processor Processor, logger *observability.Logger, metrics *observability.MetricsProvider, workers int, startsPerSecond float64, consumerPrefix string) *Pool {
	return &Pool{
		queue:          q,
		processor:      processor,
		logger:         logger,
		metrics:        metrics,
		limiter:        rate.NewLimiter(rate.Limit(startsPerSecond), int(startsPerSecond)+1),
		workers:        workers,
		consumerPrefix: consumerPrefix,
		stallInterval:  30 * time.Second,
	}
}

// Start launches the worker goroutines and the stall-reclaim loop. It
// returns immediately; call Stop to drain.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	for i := 0; i < p.workers; i++ {
		consumer := workerConsumerName(p.consumerPrefix, i)
		p.wg.Add(1)
		go p.runWorker(ctx, consumer)
	}

	p.wg.Add(1)
	go p.runReclaimLoop(ctx)

	p.logger.Info(ctx, "worker pool started", map[string]interface{}{
		"workers":           p.workers,
		"starts_per_second": float64(p.limiter.Limit()),
	})
}

// Stop signals every worker to drain its current job and exit, then waits
// for them to finish — a job already leased is always acked/nacked before
// the pool returns.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, consumer string) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		lease, err := p.queue.Reserve(ctx, consumer, 5*time.Second)
		if err != nil {
			p.logger.Error(ctx, "reserve job failed", err, map[string]interface{}{"consumer": consumer})
			continue
		}
		if lease == nil {
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		p.runJob(ctx, lease)
	}
}

func (p *Pool) runJob(ctx context.Context, lease *queue.Lease) {
	p.metrics.SetWorkerActive(ctx, 1)
	defer p.metrics.SetWorkerActive(ctx, -1)

	err := p.processor.Process(ctx, lease.Job)
	if err != nil {
		if nackErr := p.queue.Nack(ctx, lease, err); nackErr != nil {
			p.logger.Error(ctx, "nack job failed", nackErr, map[string]interface{}{"orderId": lease.Job.OrderID.String()})
		}
		return
	}
	if ackErr := p.queue.Ack(ctx, lease); ackErr != nil {
		p.logger.Error(ctx, "ack job failed", ackErr, map[string]interface{}{"orderId": lease.Job.OrderID.String()})
	}
}

func (p *Pool) runReclaimLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.stallInterval)
	defer ticker.Stop()
	consumer := workerConsumerName(p.consumerPrefix, -1)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			leases, err := p.queue.ReclaimStalled(ctx, consumer)
			if err != nil {
				p.logger.Error(ctx, "reclaim stalled jobs failed", err, nil)
				continue
			}
			for _, lease := range leases {
				p.runJob(ctx, lease)
			}
		}
	}
}

func workerConsumerName(prefix string, idx int) string {
	if idx < 0 {
		return prefix + "-reclaimer"
	}
	return prefix + "-" + strconv.Itoa(idx)
}
