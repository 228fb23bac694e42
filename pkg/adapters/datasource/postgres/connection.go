package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
)

const (
	DefaultPoolMaxConns    = 4
	DefaultMaxConnIdleTime = 5 * time.Minute
)

// FactoryConfig holds pool settings applied to every handle a Factory builds.
type FactoryConfig struct {
	PoolMaxConns    int32
	MaxConnIdleTime time.Duration
}

// Factory builds connection handles scoped to one database on a fixed server.
type Factory struct {
	server Config
	pool   FactoryConfig
	logger *zap.Logger
}

// NewFactory creates a Factory for the server described by server.
// server.Database is ignored; each Connect call names its own database.
// If logger is nil, a no-op logger is used.
func NewFactory(server Config, poolCfg FactoryConfig, logger *zap.Logger) *Factory {
	if poolCfg.PoolMaxConns <= 0 {
		poolCfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if poolCfg.MaxConnIdleTime <= 0 {
		poolCfg.MaxConnIdleTime = DefaultMaxConnIdleTime
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{server: server, pool: poolCfg, logger: logger}
}

// Connect returns a handle for database. No socket is opened here; the pool
// dials on first use. Failures are of kind connectivity.
func (f *Factory) Connect(ctx context.Context, database string) (datasource.Connection, error) {
	cfg := f.server.WithDatabase(database)
	if err := cfg.Validate(); err != nil {
		return nil, f.fail(database, fmt.Errorf("invalid connection parameters: %w", err))
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, f.fail(database, fmt.Errorf("parse connection string: %w", err))
	}
	poolConfig.MaxConns = f.pool.PoolMaxConns
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = f.pool.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, f.fail(database, fmt.Errorf("create pool: %w", err))
	}

	f.logger.Debug("created connection handle",
		zap.String("host", cfg.Host),
		zap.String("database", database),
	)

	return &Conn{
		pool:     pool,
		database: database,
		logger:   f.logger.With(zap.String("database", database)),
	}, nil
}

func (f *Factory) fail(database string, err error) error {
	f.logger.Error("failed to create connection handle",
		zap.String("database", database),
		zap.String("error", logging.SanitizeError(err)),
	)
	return apperrors.Connectivity("connect", database, err)
}

// Conn is a pooled handle to one database. It implements datasource.Connection.
type Conn struct {
	pool     *pgxpool.Pool
	database string
	logger   *zap.Logger
}

// Database returns the database this handle targets.
func (c *Conn) Database() string {
	return c.database
}

// Close releases every pooled connection.
func (c *Conn) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

// Ensure Factory and Conn implement the datasource interfaces at compile time.
var (
	_ datasource.ConnectionFactory = (*Factory)(nil)
	_ datasource.Connection        = (*Conn)(nil)
)
