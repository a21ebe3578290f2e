//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"landtrust/internal/platform/database"
	"landtrust/migrations"
)

// PostgresContainer is a Postgres instance with the report history schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

func startPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("landtrust_test"),
		postgres.WithUsername("landtrust"),
		postgres.WithPassword("landtrust_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres dsn: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("open postgres: %v", err)
	}

	if err := database.Migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("migrate: %v", err)
	}

	// Shared across suites; Ryuk removes the container when the process exits.
	return &PostgresContainer{Container: container, DB: db}
}

// Reset empties the report history between tests.
func (p *PostgresContainer) Reset(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE verification_reports"); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}
