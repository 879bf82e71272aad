package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	// The migration runner lives in the migrations package, which imports
	// this one; applying the schema inline avoids the cycle.
	schema := `
		CREATE TABLE IF NOT EXISTS oracles (
			address           TEXT   PRIMARY KEY,
			authority         TEXT   NOT NULL UNIQUE,
			name              TEXT   NOT NULL,
			total_predictions BIGINT NOT NULL DEFAULT 0,
			wins              BIGINT NOT NULL DEFAULT 0,
			losses            BIGINT NOT NULL DEFAULT 0,
			created_at        BIGINT NOT NULL,
			CONSTRAINT oracles_counters CHECK (wins + losses <= total_predictions)
		);
		CREATE TABLE IF NOT EXISTS predictions (
			address        TEXT   PRIMARY KEY,
			oracle_address TEXT   NOT NULL REFERENCES oracles (address),
			prediction_id  BIGINT NOT NULL,
			asset          TEXT   NOT NULL,
			direction      TEXT   NOT NULL,
			entry_price    BIGINT NOT NULL,
			take_profit    BIGINT NOT NULL,
			stop_loss      BIGINT NOT NULL,
			created_at     BIGINT NOT NULL,
			expires_at     BIGINT NOT NULL,
			status         TEXT   NOT NULL DEFAULT 'ACTIVE',
			result_price   BIGINT NOT NULL DEFAULT 0,
			verified_at    BIGINT NOT NULL DEFAULT 0,
			CONSTRAINT predictions_oracle_id UNIQUE (oracle_address, prediction_id),
			CONSTRAINT predictions_status CHECK (status IN ('ACTIVE', 'WON', 'LOST')),
			CONSTRAINT predictions_direction CHECK (direction IN ('LONG', 'SHORT'))
		);
	`
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err, "failed to apply schema")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}
