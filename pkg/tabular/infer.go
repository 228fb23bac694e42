package tabular

import (
	"strconv"
	"strings"
)

// missingTokens are the cell values read as missing.
var missingTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

var boolTokens = map[string]bool{
	"True":  true,
	"TRUE":  true,
	"true":  true,
	"False": false,
	"FALSE": false,
	"false": false,
}

func isMissing(s string) bool {
	return missingTokens[s]
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseFloat(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	// ParseFloat accepts hex mantissas, which are not decimal CSV numbers.
	if strings.ContainsAny(t, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(t, 64)
	return v, err == nil
}

func parseBool(s string) (bool, bool) {
	v, ok := boolTokens[strings.TrimSpace(s)]
	return v, ok
}

// inferType picks the narrowest type that holds every non-missing value.
// Integer columns with missing values widen to float, and a column with rows
// but no values at all is float. A column without rows is text.
func inferType(values []string) ColumnType {
	if len(values) == 0 {
		return TypeText
	}

	var present int
	allInt, allFloat, allBool := true, true, true
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		present++
		if allInt {
			_, allInt = parseInt(v)
		}
		if allFloat {
			_, allFloat = parseFloat(v)
		}
		if allBool {
			_, allBool = parseBool(v)
		}
		if !allInt && !allFloat && !allBool {
			return TypeText
		}
	}

	switch {
	case present == 0:
		return TypeFloat
	case allInt && present == len(values):
		return TypeInteger
	case allInt || allFloat:
		return TypeFloat
	case allBool:
		return TypeBoolean
	default:
		return TypeText
	}
}

func convert(s string, t ColumnType) any {
	if isMissing(s) {
		return nil
	}
	switch t {
	case TypeInteger:
		v, _ := parseInt(s)
		return v
	case TypeFloat:
		v, _ := parseFloat(s)
		return v
	case TypeBoolean:
		v, _ := parseBool(s)
		return v
	default:
		return s
	}
}
