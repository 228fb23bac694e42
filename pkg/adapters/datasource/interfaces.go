package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/tabular"
)

// DatabaseLister enumerates the databases on a server.
// Each call opens and closes its own connection.
type DatabaseLister interface {
	// ListDatabases returns the names of all non-template databases.
	ListDatabases(ctx context.Context) ([]string, error)
}

// TableLoader writes tabular data into storage.
type TableLoader interface {
	// ReplaceTable drops any table called name and recreates it from data.
	// Returns the number of rows written.
	ReplaceTable(ctx context.Context, name string, data *tabular.Data) (int64, error)
}

// SchemaInspector reads table structure from the storage catalog.
type SchemaInspector interface {
	// DescribeTable returns the columns of the named table in ordinal order.
	DescribeTable(ctx context.Context, name string) ([]ColumnMetadata, error)
}

// Connection is a reusable handle scoped to one database.
// It must be closed when the caller is done with it.
type Connection interface {
	TableLoader
	SchemaInspector

	// Database returns the name of the database this handle targets.
	Database() string

	// Close releases the handle's connections.
	Close() error
}

// ConnectionFactory builds connection handles for a named database.
type ConnectionFactory interface {
	// Connect returns a handle for database. Implementations may defer
	// opening a socket until the handle is first used.
	Connect(ctx context.Context, database string) (Connection, error)
}
