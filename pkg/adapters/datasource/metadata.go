package datasource

// ColumnMetadata is one column of a table as reported by the storage catalog.
type ColumnMetadata struct {
	ColumnName string `json:"column_name"`
	DataType   string `json:"data_type"`
}
