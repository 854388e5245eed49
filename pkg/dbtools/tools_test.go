package dbtools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Tool      string
	Arguments map[string]interface{}
}

// fakeCaller returns canned JSON per tool and records the arguments it saw.
type fakeCaller struct {
	responses map[string]string
	err       error
	calls     []recordedCall
}

func (f *fakeCaller) CallToolJSON(ctx context.Context, toolName string, arguments interface{}, out interface{}) error {
	raw, _ := json.Marshal(arguments)
	var args map[string]interface{}
	_ = json.Unmarshal(raw, &args)
	f.calls = append(f.calls, recordedCall{Tool: toolName, Arguments: args})

	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.responses[toolName]), out)
}

func TestQuery(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		ToolQuery: `{"query":"SELECT COUNT(*) as count FROM customers","results":[{"count":42}],"count":1}`,
	}}
	tools := New(caller)

	result, err := tools.Query(context.Background(), "SELECT COUNT(*) as count FROM customers")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, int64(42), result.First().Int("count"))

	want := []recordedCall{{
		Tool: ToolQuery,
		Arguments: map[string]interface{}{
			"sql":        "SELECT COUNT(*) as count FROM customers",
			"parameters": []interface{}{},
		},
	}}
	if diff := cmp.Diff(want, caller.calls); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}

	_, err = tools.Query(context.Background(), "SELECT * FROM sales WHERE id = ?", 7)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(7)}, caller.calls[1].Arguments["parameters"])
}

func TestQueryError(t *testing.T) {
	boom := errors.New("tool query failed: Query error: no such table")
	tools := New(&fakeCaller{err: boom})

	_, err := tools.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzeTableArguments(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		ToolAnalyzeTable: `{
			"table": "sales",
			"total_rows": 1250,
			"sample_size": 100,
			"statistics": {
				"status": {"data_type": "string", "null_count": 0, "unique_count": 3, "sample_values": ["completed", "pending"]}
			}
		}`,
	}}
	tools := New(caller)

	analysis, err := tools.AnalyzeTable(context.Background(), "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), analysis.TotalRows)
	assert.Equal(t, "string", analysis.Statistics["status"].DataType)
	assert.Equal(t, int64(3), analysis.Statistics["status"].UniqueCount)
	assert.NotContains(t, caller.calls[0].Arguments, "columns")

	_, err = tools.AnalyzeTable(context.Background(), "sales", "status", "amount")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"status", "amount"}, caller.calls[1].Arguments["columns"])
}

func TestInspectSchema(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		ToolInspectSchema: `{
			"Name": "customers",
			"Columns": [
				{"Name": "id", "Type": "INTEGER", "PrimaryKey": true, "AutoIncrement": true},
				{"Name": "email", "Type": "TEXT", "Nullable": true, "Unique": true}
			],
			"Indexes": [{"Name": "idx_email", "Columns": ["email"], "Unique": true}],
			"ForeignKeys": null
		}`,
	}}

	schema, err := New(caller).InspectSchema(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, "customers", schema.Name)
	assert.Equal(t, []string{"id", "email"}, schema.ColumnNames())
	assert.True(t, schema.Columns[0].PrimaryKey)
	assert.True(t, schema.Columns[1].Unique)
	require.Len(t, schema.Indexes, 1)
	assert.Equal(t, []string{"email"}, schema.Indexes[0].Columns)
	assert.Equal(t, "customers", schema.Raw["Name"])
}

func TestBatchQuery(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		ToolBatchQuery: `{
			"batch_size": 2,
			"executed": 2,
			"fail_fast_mode": false,
			"results": [
				{"index": 0, "label": "table_count", "sql": "SELECT 1", "results": [{"total_tables": 3}], "count": 1, "success": true},
				{"index": 1, "label": "broken", "sql": "SELECT x", "count": 0, "success": false, "error": "Query error: no such column: x"}
			]
		}`,
	}}
	tools := New(caller)

	result, err := tools.BatchQuery(context.Background(), []BatchQuery{
		{SQL: "SELECT 1", Label: "table_count"},
		{SQL: "SELECT x", Label: "broken"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Executed)

	count, ok := result.ByLabel("table_count")
	require.True(t, ok)
	assert.True(t, count.HasRows())
	assert.Equal(t, int64(3), count.Results[0].Int("total_tables"))

	broken, ok := result.ByLabel("broken")
	require.True(t, ok)
	assert.False(t, broken.HasRows())
	assert.Contains(t, broken.Error, "no such column")

	_, ok = result.ByLabel("missing")
	assert.False(t, ok)

	assert.NotContains(t, caller.calls[0].Arguments, "fail_fast")

	_, err = tools.BatchQuery(context.Background(), []BatchQuery{{SQL: "SELECT 1"}}, true)
	require.NoError(t, err)
	assert.Equal(t, true, caller.calls[1].Arguments["fail_fast"])
}

func TestStreamQueryDefaultsBatchSize(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		ToolStreamQuery: `{"query":"SELECT 1","total_rows":1,"batch_size":100,"batch_count":1,"batches":[[{"a":1}]],"streaming":true}`,
	}}

	result, err := New(caller).StreamQuery(context.Background(), "SELECT 1", 0)
	require.NoError(t, err)
	assert.True(t, result.Streaming)
	assert.Equal(t, float64(DefaultStreamBatchSize), caller.calls[0].Arguments["batch_size"])
	assert.NotContains(t, caller.calls[0].Arguments, "parameters")
}

func TestCountAndSample(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		ToolCountRecords:   `{"table":"sales","count":17,"conditions":{"status":"pending"}}`,
		ToolGenerateSample: `{"table":"customers","sample_size":2,"requested":2,"random":true,"data":[{"id":1},{"id":2}]}`,
	}}
	tools := New(caller)

	count, err := tools.CountRecords(context.Background(), "sales", map[string]interface{}{"status": "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(17), count.Count)
	assert.Equal(t, "pending", count.Conditions["status"])

	sample, err := tools.GenerateSample(context.Background(), "customers", 2, true)
	require.NoError(t, err)
	assert.Len(t, sample.Data, 2)
	assert.True(t, sample.Random)
	assert.Equal(t, float64(2), caller.calls[1].Arguments["count"])
}
