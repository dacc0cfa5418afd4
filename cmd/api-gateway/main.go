package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/api"
	"github.com/swapengine/engine/internal/audit"
	"github.com/swapengine/engine/internal/config"
	"github.com/swapengine/engine/internal/notify"
	"github.com/swapengine/engine/internal/orchestrator"
	"github.com/swapengine/engine/internal/queue"
	"github.com/swapengine/engine/internal/store"
	"github.com/swapengine/engine/internal/venue"
	"github.com/swapengine/engine/internal/worker"
	"github.com/swapengine/engine/pkg/database"
	"github.com/swapengine/engine/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability)
	ctx := context.Background()

	tracing, err := observability.NewTracingProvider(cfg.Observability)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer tracing.Shutdown(ctx)

	metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: "1.0.0",
		Namespace:      "swapengine",
		Port:           9090,
		Enabled:        true,
	})
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}
	go func() {
		if err := metrics.StartMetricsServer(9090); err != nil {
			logger.Warn(ctx, "metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	defer metrics.Shutdown(ctx)

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient, err := database.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	orderStore := store.New(db)

	registry := venue.NewRegistry()
	registry.Register(venue.NewRaydiumAdapter(logger, seedRaydiumPools()))
	registry.Register(venue.NewOrcaAdapter(logger, seedOrcaPools()))
	registry.Register(venue.NewJupiterAdapter(logger, seedJupiterRoutes()))
	aggregator := venue.NewAggregator(registry)

	bus := audit.NewBus(logger)
	bus.Register(audit.ListenerFunc(orderStore.AsListener()))

	hub := notify.NewHub(logger)

	jobQueue := queue.New(redisClient, cfg.Queue, logger)
	if err := jobQueue.EnsureGroup(ctx); err != nil {
		log.Fatalf("failed to ensure consumer group: %v", err)
	}

	proc := orchestrator.New(orderStore, registry, aggregator, bus, hub, logger, metrics, cfg.Wallet.Address)

	go pollQueueDepth(ctx, jobQueue, metrics, logger)

	pool := worker.New(jobQueue, proc, logger, metrics, cfg.Queue.Concurrency, float64(cfg.Queue.StartsPerSecond), "engine-worker")
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	pool.Start(workerCtx)

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterCheck("database", observability.DatabaseHealthCheck(db.Health))
	healthChecker.RegisterCheck("redis", observability.RedisHealthCheck(redisClient.Health))
	healthServer := observability.NewHealthServer(healthChecker, observability.ServiceInfo{
		Name:        cfg.Observability.ServiceName,
		Version:     "1.0.0",
		Environment: "production",
	}, logger)

	apiServer := api.NewAPIServer(logger, api.Config{
		Host:            cfg.Server.Host,
		Port:            mustAtoi(cfg.Server.Port),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		EnableCORS:      true,
		EnableWebSocket: true,
	}, orderStore, jobQueue, hub, healthServer, metrics)

	go func() {
		logger.Info(ctx, "starting execution engine API server", map[string]interface{}{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		})
		if err := apiServer.Start(ctx); err != nil {
			log.Fatalf("api server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down execution engine", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ShutdownDeadline)
	defer cancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "api server shutdown error", err)
	}

	cancelWorkers()
	pool.Stop()

	logger.Info(shutdownCtx, "execution engine stopped", nil)
}

// pollQueueDepth keeps the job_queue_depth gauge in sync with the stream's
// actual length, since Redis Streams has no push notification for size.
func pollQueueDepth(ctx context.Context, q *queue.Queue, metrics *observability.MetricsProvider, logger *observability.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := q.Depth(ctx)
			if err != nil {
				logger.Warn(ctx, "queue depth poll failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			metrics.IncJobQueueDepth(ctx, depth-last)
			last = depth
		}
	}
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return 8080
	}
	return n
}

func seedRaydiumPools() []venue.RaydiumPool {
	return []venue.RaydiumPool{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(500000), ReserveOut: decimal.NewFromInt(75000000), FeeBps: 25},
		{TokenIn: "USDC", TokenOut: "SOL", ReserveIn: decimal.NewFromInt(75000000), ReserveOut: decimal.NewFromInt(500000), FeeBps: 25},
		{TokenIn: "SOL", TokenOut: "USDT", ReserveIn: decimal.NewFromInt(420000), ReserveOut: decimal.NewFromInt(63000000), FeeBps: 25},
		{TokenIn: "USDT", TokenOut: "SOL", ReserveIn: decimal.NewFromInt(63000000), ReserveOut: decimal.NewFromInt(420000), FeeBps: 25},
	}
}

func seedOrcaPools() []venue.OrcaPool {
	return []venue.OrcaPool{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(380000), ReserveOut: decimal.NewFromInt(57200000), FeeBps: 5},
		{TokenIn: "USDC", TokenOut: "SOL", ReserveIn: decimal.NewFromInt(57200000), ReserveOut: decimal.NewFromInt(380000), FeeBps: 5},
		{TokenIn: "SOL", TokenOut: "BONK", ReserveIn: decimal.NewFromInt(100000), ReserveOut: decimal.NewFromInt(4500000000), FeeBps: 30},
		{TokenIn: "BONK", TokenOut: "SOL", ReserveIn: decimal.NewFromInt(4500000000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 30},
	}
}

func seedJupiterRoutes() []venue.JupiterRoute {
	return []venue.JupiterRoute{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(450000), ReserveOut: decimal.NewFromInt(67700000), FeeBps: 15, Label: "direct"},
		{TokenIn: "USDC", TokenOut: "SOL", ReserveIn: decimal.NewFromInt(67700000), ReserveOut: decimal.NewFromInt(450000), FeeBps: 15, Label: "direct"},
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(300000), ReserveOut: decimal.NewFromInt(45100000), FeeBps: 20, Label: "split-raydium+orca"},
		{TokenIn: "SOL", TokenOut: "USDT", ReserveIn: decimal.NewFromInt(360000), ReserveOut: decimal.NewFromInt(54000000), FeeBps: 18, Label: "direct"},
		{TokenIn: "USDT", TokenOut: "SOL", ReserveIn: decimal.NewFromInt(54000000), ReserveOut: decimal.NewFromInt(360000), FeeBps: 18, Label: "direct"},
	}
}
