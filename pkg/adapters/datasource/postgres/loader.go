package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/tabular"
)

// MaxIdentifierLength is PostgreSQL's NAMEDATALEN-1; longer names are truncated
// silently by the server.
const MaxIdentifierLength = 63

// columnTypes maps inferred column types to PostgreSQL types.
var columnTypes = map[tabular.ColumnType]string{
	tabular.TypeInteger: "bigint",
	tabular.TypeFloat:   "double precision",
	tabular.TypeBoolean: "boolean",
	tabular.TypeText:    "text",
}

// PostgresType returns the storage type for an inferred column type.
// Unknown types are stored as text.
func PostgresType(t tabular.ColumnType) string {
	if pgType, ok := columnTypes[t]; ok {
		return pgType
	}
	return "text"
}

func validateIdentifier(name string) error {
	if name == "" {
		return apperrors.ErrEmptyTableName
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %q", apperrors.ErrIdentifierTooLong, name)
	}
	return nil
}

// createTableSQL renders CREATE TABLE for the given columns with every
// identifier quoted.
func createTableSQL(table string, columns []tabular.Column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = pgx.Identifier{col.Name}.Sanitize() + " " + PostgresType(col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
}

func dropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + pgx.Identifier{table}.Sanitize()
}

// ReplaceTable drops any table called name and recreates it from data, in one
// transaction. Column types come from data's inferred types. All failures are
// of kind write; nothing is retried.
func (c *Conn) ReplaceTable(ctx context.Context, name string, data *tabular.Data) (int64, error) {
	const op = "load table"

	if err := validateIdentifier(name); err != nil {
		return 0, apperrors.Write(op, name, err)
	}
	if data == nil || len(data.Columns) == 0 {
		return 0, apperrors.Write(op, name, errors.New("no columns to load"))
	}
	for _, col := range data.Columns {
		if err := validateIdentifier(col.Name); err != nil {
			return 0, apperrors.Write(op, name, fmt.Errorf("column: %w", err))
		}
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, c.writeFailed(name, "", fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dropSQL := dropTableSQL(name)
	if _, err := tx.Exec(ctx, dropSQL); err != nil {
		return 0, c.writeFailed(name, dropSQL, fmt.Errorf("drop table: %w", err))
	}
	createSQL := createTableSQL(name, data.Columns)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, c.writeFailed(name, createSQL, fmt.Errorf("create table: %w", err))
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{name}, data.ColumnNames(), pgx.CopyFromRows(data.Rows))
	if err != nil {
		return 0, c.writeFailed(name, "", fmt.Errorf("copy rows: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, c.writeFailed(name, "", fmt.Errorf("commit: %w", err))
	}

	c.logger.Info("replaced table",
		zap.String("table", name),
		zap.Int("columns", len(data.Columns)),
		zap.Int64("rows", copied),
	)
	return copied, nil
}

// writeFailed logs a load failure and wraps it as a write error. stmt is the
// DDL statement that failed, or empty when the failure was not a statement.
func (c *Conn) writeFailed(table, stmt string, err error) error {
	fields := []zap.Field{
		zap.String("table", table),
		zap.String("error", logging.SanitizeError(err)),
	}
	if stmt != "" {
		fields = append(fields, zap.String("statement", logging.SanitizeQuery(stmt)))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields, zap.String("pg_code", pgErr.Code))
	}
	c.logger.Error("failed to load table", fields...)
	return apperrors.Write("load table", table, err)
}
