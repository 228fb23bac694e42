package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// IdentifierKind says where a scanned identifier came from.
type IdentifierKind string

const (
	IdentifierFileName IdentifierKind = "file_name"
	IdentifierTable    IdentifierKind = "table"
	IdentifierColumn   IdentifierKind = "column"
)

// InjectionCheckResult contains the result of an injection check on an identifier.
type InjectionCheckResult struct {
	Kind        IdentifierKind // What was checked
	Value       string         // The value that was checked
	Fingerprint string         // libinjection fingerprint of the detected pattern
}

// CheckIdentifierForInjection uses libinjection to detect SQL injection
// patterns in a client-derived identifier such as an uploaded file name or a
// CSV header cell.
//
// Identifiers are always quoted before reaching SQL, so a hit is not a
// vulnerability; it marks an upload worth auditing.
//
// Returns nil if no injection is detected.
//
// Example:
//
//	result := CheckIdentifierForInjection(IdentifierColumn, "' OR '1'='1")
//	// result.Fingerprint == "s&sos" (or similar)
func CheckIdentifierForInjection(kind IdentifierKind, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Kind:        kind,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// CheckUploadIdentifiers scans the file name, derived table name and column
// names of one upload, in that order. Returns nil if all are clean.
func CheckUploadIdentifiers(fileName, table string, columns []string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	add := func(kind IdentifierKind, value string) {
		if result := CheckIdentifierForInjection(kind, value); result != nil {
			results = append(results, result)
		}
	}

	add(IdentifierFileName, fileName)
	add(IdentifierTable, table)
	for _, col := range columns {
		add(IdentifierColumn, col)
	}
	return results
}
