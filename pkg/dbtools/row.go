package dbtools

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cast"
)

// Row is one result row keyed by column name. Values are whatever the JSON
// decoder produced: float64, string, bool, nil or nested values.
type Row map[string]interface{}

// Float returns the column as a float64. Missing, null and unparsable values yield 0.
func (r Row) Float(column string) float64 {
	v, err := cast.ToFloat64E(r[column])
	if err != nil {
		return 0
	}
	return v
}

// Int returns the column as an int64. Numeric strings such as the output of
// strftime are converted; fractional values are truncated.
func (r Row) Int(column string) int64 {
	switch v := r[column].(type) {
	case float64:
		return int64(v)
	case string:
		if f, err := cast.ToFloat64E(v); err == nil {
			return int64(f)
		}
		return 0
	}
	v, err := cast.ToInt64E(r[column])
	if err != nil {
		return 0
	}
	return v
}

// String returns the column rendered as a string. Null yields "".
func (r Row) String(column string) string {
	v, err := cast.ToStringE(r[column])
	if err != nil {
		return ""
	}
	return v
}

// Has reports whether the column is present and not null.
func (r Row) Has(column string) bool {
	v, ok := r[column]
	return ok && v != nil
}

// Columns returns the column names in sorted order.
func (r Row) Columns() []string {
	columns := make([]string, 0, len(r))
	for k := range r {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// JSON renders the row as a compact JSON object.
func (r Row) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(data)
}
