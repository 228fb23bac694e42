// Package naming derives storage identifiers from user-supplied names.
package naming

import "strings"

// SanitizeTableName converts an uploaded file name into a table name.
//
// Everything from the first "." onward is dropped, so "sales.q1.2024.csv"
// becomes "sales". Spaces become underscores and the result is lowercased.
// The result may be empty (".csv" yields "").
func SanitizeTableName(fileName string) string {
	name, _, _ := strings.Cut(fileName, ".")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
