package dbtools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowAccessors(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{
		"count": 42,
		"avg": 87.456,
		"day_of_week": "3",
		"hour": "08",
		"name": "Alice",
		"missing": null
	}`), &row))

	assert.Equal(t, int64(42), row.Int("count"))
	assert.Equal(t, 42.0, row.Float("count"))
	assert.Equal(t, 87.456, row.Float("avg"))
	assert.Equal(t, int64(87), row.Int("avg"))
	assert.Equal(t, int64(3), row.Int("day_of_week"))
	assert.Equal(t, int64(8), row.Int("hour"))
	assert.Equal(t, "Alice", row.String("name"))
	assert.Equal(t, "42", row.String("count"))

	assert.Equal(t, int64(0), row.Int("missing"))
	assert.Equal(t, 0.0, row.Float("missing"))
	assert.Equal(t, "", row.String("missing"))
	assert.Equal(t, int64(0), row.Int("name"))
	assert.Equal(t, int64(0), row.Int("absent"))

	assert.True(t, row.Has("count"))
	assert.False(t, row.Has("missing"))
	assert.False(t, row.Has("absent"))

	assert.Equal(t, []string{"avg", "count", "day_of_week", "hour", "missing", "name"}, row.Columns())
}

func TestRowJSON(t *testing.T) {
	row := Row{"b": 2, "a": "x"}
	assert.Equal(t, `{"a":"x","b":2}`, row.JSON())
}
