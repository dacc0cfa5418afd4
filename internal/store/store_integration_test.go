package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/swapengine/engine/internal/config"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration test for the order store against a real Postgres instance,
// run via testcontainers the way internal/web3's repository tests do in
// the wider corpus. Skipped in short mode since it needs a container
// runtime.
func TestOrderStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers-backed integration test in short mode")
	}
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "swapengine_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: pgReq, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.NewPostgresDB(config.DatabaseConfig{
		Host: host, Port: port.Int(), User: "postgres", Password: "postgres",
		Name: "swapengine_test", SSLMode: "disable",
		MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))

	s := New(db)

	order := domain.NewOrder(domain.CreateOrderInput{
		TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, s.Create(ctx, order))

	got, err := s.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)

	processing, err := s.UpdateStatus(ctx, order.ID, domain.StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, processing.Status)

	_, err = s.UpdateStatus(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err) // processing -> completed is a legal transition

	final, err := s.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, final.Status)

	// Cancelling an already-terminal (completed) order must conflict.
	_, err = s.Cancel(ctx, order.ID)
	require.Error(t, err)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	record := domain.AuditRecord{
		ID: order.ID, OrderID: order.ID, EventType: domain.EventOrderCreated,
		EventVersion: 1, Timestamp: time.Now().UTC(),
	}
	require.NoError(t, s.AppendAudit(ctx, record))
	// Re-appending the same (orderId, eventVersion) pair must be a no-op.
	require.NoError(t, s.AppendAudit(ctx, record))

	history, err := s.AuditHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}
