package postgres_test

import (
	root "bills"
	"bills/pkg/domain"
	"bills/pkg/storage/postgres"
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testUser     = "postgres"
	testPassword = "postgres"
	testDB       = "testdb"
)

type postgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

func startPostgresContainer(ctx context.Context) (*postgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:17",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
			"POSTGRES_DB":       testDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, fmt.Errorf("could not get mapped port: %w", err)
	}

	return &postgresContainer{
		Container: container,
		Host:      host,
		Port:      mappedPort.Int(),
	}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(root.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("could not set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupTestDB(t *testing.T) (*postgres.PgSQL, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := startPostgresContainer(ctx)
	require.NoError(t, err)

	pgSQL, err := postgres.New(ctx, postgres.Options{
		Username:        testUser,
		Password:        testPassword,
		Host:            pgContainer.Host,
		Port:            pgContainer.Port,
		Database:        testDB,
		SslMode:         "disable",
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		MaxConnections:  10,
		MinConnections:  1,
	})
	require.NoError(t, err)

	err = runMigrations(pgSQL.DB.(*sql.DB))
	require.NoError(t, err)

	return pgSQL, func() {
		_ = pgSQL.Close()
		_ = pgContainer.Container.Terminate(ctx)
	}
}

type lineSpec struct {
	concept  string
	quantity string
	unit     string
}

func newBill(t *testing.T, number string, tax string, lines ...lineSpec) domain.ValidatedBill {
	t.Helper()

	validated := make([]domain.ValidatedBillLine, len(lines))
	for i, l := range lines {
		vl, err := domain.NewLine(i+1, l.concept, decimal.RequireFromString(l.quantity), decimal.RequireFromString(l.unit))
		require.NoError(t, err)
		validated[i] = vl
	}

	b, err := domain.NewBill(number,
		time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		"ACME Corp",
		"usd",
		decimal.RequireFromString(tax),
		validated)
	require.NoError(t, err)

	return b
}
