package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
)

const describeTableQuery = `
	SELECT column_name, data_type
	FROM information_schema.columns
	WHERE table_name = $1
	  AND table_schema = current_schema()
	ORDER BY ordinal_position
`

// DescribeTable returns the columns of the named table in the current schema,
// in ordinal order. A table with no catalog rows yields apperrors.ErrNotFound.
// All failures are of kind read.
func (c *Conn) DescribeTable(ctx context.Context, name string) ([]datasource.ColumnMetadata, error) {
	rows, err := c.pool.Query(ctx, describeTableQuery, name)
	if err != nil {
		return nil, c.readFailed(name, fmt.Errorf("query columns: %w", err))
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var col datasource.ColumnMetadata
		if err := rows.Scan(&col.ColumnName, &col.DataType); err != nil {
			return nil, c.readFailed(name, fmt.Errorf("scan column: %w", err))
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, c.readFailed(name, fmt.Errorf("iterate columns: %w", err))
	}

	if len(columns) == 0 {
		return nil, c.readFailed(name, fmt.Errorf("table %w", apperrors.ErrNotFound))
	}
	return columns, nil
}

func (c *Conn) readFailed(table string, err error) error {
	c.logger.Warn("failed to inspect table",
		zap.String("table", table),
		zap.String("error", logging.SanitizeError(err)),
	)
	return apperrors.Read("inspect table", table, err)
}
