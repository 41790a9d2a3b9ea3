package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/database"
)

// LedgerTestImage is the stock PostgreSQL image used for ledger tests.
const LedgerTestImage = "postgres:16-alpine"

// LedgerDB holds a shared ledger database with migrations applied.
type LedgerDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedLedgerDB     *LedgerDB
	sharedLedgerDBOnce sync.Once
	sharedLedgerDBErr  error
)

// GetLedgerDB returns a shared PostgreSQL container for ledger tests.
// The container is created once and reused across all tests in the run.
func GetLedgerDB(t *testing.T) *LedgerDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedLedgerDBOnce.Do(func() {
		sharedLedgerDB, sharedLedgerDBErr = setupLedgerDB()
	})

	if sharedLedgerDBErr != nil {
		t.Fatalf("Failed to setup ledger database: %v", sharedLedgerDBErr)
	}

	return sharedLedgerDB
}

func setupLedgerDB() (*LedgerDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        LedgerTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "catalog_migrator_test",
			"POSTGRES_USER":     "migrator",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://migrator:test_password@%s:%s/catalog_migrator_test?sslmode=disable",
		host, port.Port())

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	if err := database.Migrate(connStr, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &LedgerDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}
