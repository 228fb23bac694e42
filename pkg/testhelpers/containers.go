package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// PostgresImage is the server image integration tests run against.
	PostgresImage = "postgres:16-alpine"

	PostgresUser     = "csvloader"
	PostgresPassword = "test_password"

	// BootstrapDatabase is the database the container is created with.
	BootstrapDatabase = "postgres"
)

// TestDB holds a shared PostgreSQL container and an admin pool on its
// bootstrap database.
type TestDB struct {
	Container *tcpostgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string

	Host     string
	Port     int
	User     string
	Password string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx,
		PostgresImage,
		tcpostgres.WithUsername(PostgresUser),
		tcpostgres.WithPassword(PostgresPassword),
		tcpostgres.WithDatabase(BootstrapDatabase),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to parse container port %q: %w", port.Port(), err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	return &TestDB{
		Container: ctr,
		Pool:      pool,
		ConnStr:   connStr,
		Host:      host,
		Port:      portNum,
		User:      PostgresUser,
		Password:  PostgresPassword,
	}, nil
}

// CreateDatabase creates a fresh database called name, dropping any previous
// one, and removes it when the test finishes.
func (db *TestDB) CreateDatabase(t *testing.T, name string) {
	t.Helper()
	ctx := context.Background()

	ident := pgx.Identifier{name}.Sanitize()
	if _, err := db.Pool.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
		t.Fatalf("failed to drop database %s: %v", name, err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		t.Fatalf("failed to create database %s: %v", name, err)
	}

	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)")
	})
}

// DatabasePool opens a pool on the named database, closed when the test finishes.
func (db *TestDB) DatabasePool(t *testing.T, name string) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(db.ConnStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	cfg.ConnConfig.Database = name

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to open pool on %s: %v", name, err)
	}
	t.Cleanup(pool.Close)
	return pool
}
