//go:build integration

package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresProvider(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("contactpic_test"),
		postgres.WithUsername("contactpic_test"),
		postgres.WithPassword("contactpic_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := Config{
		Type: TypePostgres,
		Postgres: PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "contactpic_test",
			User:     "contactpic_test",
			Password: "contactpic_test",
		},
	}
	cfg.ApplyDefaults()

	p, err := NewSQLProvider(&cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	require.NoError(t, p.Healthcheck(ctx))
	runWriterContract(t, p)
}
