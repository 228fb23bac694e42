//go:build integration

package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/tabular"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/testhelpers"
)

func serverConfig(db *testhelpers.TestDB) Config {
	return Config{
		Host:     db.Host,
		Port:     db.Port,
		User:     db.User,
		Password: db.Password,
		SSLMode:  "disable",
	}
}

func connect(t *testing.T, db *testhelpers.TestDB, database string) datasource.Connection {
	t.Helper()
	factory := NewFactory(serverConfig(db), FactoryConfig{}, zaptest.NewLogger(t))
	conn, err := factory.Connect(context.Background(), database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func parse(t *testing.T, csv string) *tabular.Data {
	t.Helper()
	data, err := tabular.ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return data
}

func TestLister_ListDatabases_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "salesdb")

	lister := NewLister(serverConfig(db), testhelpers.BootstrapDatabase, zaptest.NewLogger(t))
	databases, err := lister.ListDatabases(context.Background())
	require.NoError(t, err)

	assert.Contains(t, databases, "postgres")
	assert.Contains(t, databases, "salesdb")
	assert.NotContains(t, databases, "template0")
	assert.NotContains(t, databases, "template1")
	assert.IsIncreasing(t, databases)
}

func TestLister_ListDatabases_BadPassword_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)

	cfg := serverConfig(db)
	cfg.Password = "wrong"
	lister := NewLister(cfg, testhelpers.BootstrapDatabase, zaptest.NewLogger(t))

	databases, err := lister.ListDatabases(context.Background())
	require.Error(t, err)
	assert.Nil(t, databases)
	assert.Equal(t, apperrors.KindConnectivity, apperrors.KindOf(err))
}

func TestConn_ReplaceAndDescribe_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "salesdb")
	conn := connect(t, db, "salesdb")
	ctx := context.Background()

	data := parse(t, "region,amount\nnorth,10\nsouth,20\n")
	n, err := conn.ReplaceTable(ctx, "q1_2024", data)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	columns, err := conn.DescribeTable(ctx, "q1_2024")
	require.NoError(t, err)
	assert.Equal(t, []datasource.ColumnMetadata{
		{ColumnName: "region", DataType: "text"},
		{ColumnName: "amount", DataType: "bigint"},
	}, columns)

	pool := db.DatabasePool(t, "salesdb")
	var total int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT sum(amount) FROM q1_2024`).Scan(&total))
	assert.Equal(t, int64(30), total)
}

func TestConn_ReplaceTable_ReplacesPreviousTable_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "replacedb")
	conn := connect(t, db, "replacedb")
	ctx := context.Background()

	_, err := conn.ReplaceTable(ctx, "inventory", parse(t, "sku,qty,price\na,1,2.5\nb,2,3.5\nc,3,4.5\n"))
	require.NoError(t, err)

	n, err := conn.ReplaceTable(ctx, "inventory", parse(t, "sku,in_stock\na,true\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	columns, err := conn.DescribeTable(ctx, "inventory")
	require.NoError(t, err)
	assert.Equal(t, []datasource.ColumnMetadata{
		{ColumnName: "sku", DataType: "text"},
		{ColumnName: "in_stock", DataType: "boolean"},
	}, columns)

	var count int
	require.NoError(t, db.DatabasePool(t, "replacedb").QueryRow(ctx, `SELECT count(*) FROM inventory`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestConn_ReplaceTable_SameDataTwice_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "twicedb")
	conn := connect(t, db, "twicedb")
	ctx := context.Background()
	const csv = "region,amount,ratio\nnorth,10,0.5\nsouth,20,\neast,30,1.5\n"

	first, err := conn.ReplaceTable(ctx, "q1_2024", parse(t, csv))
	require.NoError(t, err)
	once, err := conn.DescribeTable(ctx, "q1_2024")
	require.NoError(t, err)

	second, err := conn.ReplaceTable(ctx, "q1_2024", parse(t, csv))
	require.NoError(t, err)
	twice, err := conn.DescribeTable(ctx, "q1_2024")
	require.NoError(t, err)

	assert.Equal(t, int64(3), first)
	assert.Equal(t, first, second)
	assert.Equal(t, once, twice)

	var count int
	require.NoError(t, db.DatabasePool(t, "twicedb").QueryRow(ctx, `SELECT count(*) FROM q1_2024`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestConn_ReplaceTable_QuotesIdentifiers_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "quotedb")
	conn := connect(t, db, "quotedb")
	ctx := context.Background()

	table := `x"; drop table users; --`
	_, err := conn.ReplaceTable(ctx, table, parse(t, "Order Date,select\n2024-01-01,1\n"))
	require.NoError(t, err)

	columns, err := conn.DescribeTable(ctx, table)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "Order Date", columns[0].ColumnName)
	assert.Equal(t, "select", columns[1].ColumnName)
}

func TestConn_ReplaceTable_MissingValues_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "nulldb")
	conn := connect(t, db, "nulldb")
	ctx := context.Background()

	_, err := conn.ReplaceTable(ctx, "readings", parse(t, "sensor,value\na,1\nb,\n"))
	require.NoError(t, err)

	columns, err := conn.DescribeTable(ctx, "readings")
	require.NoError(t, err)
	assert.Equal(t, "double precision", columns[1].DataType)

	var nulls int
	require.NoError(t, db.DatabasePool(t, "nulldb").QueryRow(ctx,
		`SELECT count(*) FROM readings WHERE value IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestConn_DescribeTable_Missing_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateDatabase(t, "emptydb")
	conn := connect(t, db, "emptydb")

	_, err := conn.DescribeTable(context.Background(), "does_not_exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, apperrors.KindRead, apperrors.KindOf(err))
}

func TestFactory_Connect_MissingDatabase_Integration(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	conn := connect(t, db, "no_such_database")

	// The handle is lazy; the failure surfaces on first use as a write error.
	_, err := conn.ReplaceTable(context.Background(), "t", parse(t, "a\n1\n"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindWrite, apperrors.KindOf(err))
}
