package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/launchr/internal/history"
)

// setupClickHouseContainer starts a ClickHouse container, or skips when the
// Docker environment is unavailable.
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start ClickHouse container: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	dsn := host + ":" + port.Port()
	return clickHouseContainer, dsn
}

func TestClickHouseSinkIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	clickHouseContainer, dsn := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := clickHouseContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink, err := New(dsn, "launchr_history")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	if err := sink.EnsureTable(ctx); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	spawnEvent := history.Event{
		Type:       history.EventSpawn,
		OccurredAt: time.Now().Add(-time.Minute).UTC(),
		RunID:      "run-it",
		Name:       "media",
		PID:        12345,
	}
	if err := sink.Send(ctx, spawnEvent); err != nil {
		t.Fatalf("Failed to send spawn event: %v", err)
	}

	exitEvent := history.Event{
		Type:       history.EventExit,
		OccurredAt: time.Now().UTC(),
		RunID:      "run-it",
		Name:       "media",
		PID:        12345,
		ExitCode:   0,
	}
	if err := sink.Send(ctx, exitEvent); err != nil {
		t.Fatalf("Failed to send exit event: %v", err)
	}

	// Give the server a moment to commit the inserts.
	time.Sleep(100 * time.Millisecond)

	row := sink.conn.QueryRow(ctx, "SELECT COUNT(*) FROM launchr_history WHERE run_id = ?", "run-it")
	var count uint64
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}

	// A cancelled context must surface as an error, not hang.
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := sink.Send(cancelCtx, spawnEvent); err != nil {
		t.Logf("Expected error with cancelled context: %v", err)
	}
}

func TestClickHouseSinkConnectionError(t *testing.T) {
	_, err := New("invalid-host:9000", "launchr_history")
	if err == nil {
		t.Error("Expected error with invalid connection, got nil")
	}
}
