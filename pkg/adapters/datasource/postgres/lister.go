package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
)

const listDatabasesQuery = `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`

// Lister enumerates the non-template databases on a server through a
// short-lived connection to the bootstrap database.
type Lister struct {
	cfg       Config
	bootstrap string
	openDB    func(driverName, dataSourceName string) (*sql.DB, error)
	logger    *zap.Logger
}

// NewLister creates a Lister for the server described by cfg. cfg.Database is
// ignored; the lister always connects to bootstrap (BootstrapDatabase if empty).
// If logger is nil, a no-op logger is used.
func NewLister(cfg Config, bootstrap string, logger *zap.Logger) *Lister {
	if bootstrap == "" {
		bootstrap = BootstrapDatabase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{
		cfg:       cfg.WithDatabase(bootstrap),
		bootstrap: bootstrap,
		openDB:    sql.Open,
		logger:    logger,
	}
}

// ListDatabases returns the names of all databases with datistemplate = false,
// ordered by name. The connection is closed before returning, on success or failure.
// On error the result is nil and the error is of kind connectivity.
func (l *Lister) ListDatabases(ctx context.Context) ([]string, error) {
	db, err := l.openDB("pgx", l.cfg.ConnectionString())
	if err != nil {
		return nil, l.fail(fmt.Errorf("open connection: %w", err))
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, listDatabasesQuery)
	if err != nil {
		return nil, l.fail(fmt.Errorf("query databases: %w", err))
	}
	defer rows.Close()

	databases := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, l.fail(fmt.Errorf("scan database: %w", err))
		}
		databases = append(databases, name)
	}
	if err := rows.Err(); err != nil {
		return nil, l.fail(fmt.Errorf("iterate databases: %w", err))
	}

	l.logger.Debug("listed databases",
		zap.String("host", l.cfg.Host),
		zap.Int("count", len(databases)),
	)
	return databases, nil
}

func (l *Lister) fail(err error) error {
	l.logger.Error("failed to list databases",
		zap.String("host", l.cfg.Host),
		zap.String("bootstrap", l.bootstrap),
		zap.String("error", logging.SanitizeError(err)),
	)
	return apperrors.Connectivity("list databases", "", err)
}

// Ensure Lister implements datasource.DatabaseLister at compile time.
var _ datasource.DatabaseLister = (*Lister)(nil)
