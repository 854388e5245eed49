// Package dbtools wraps the SQL tools of a database MCP server in typed calls.
package dbtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Tool names exposed by the database server.
const (
	ToolQuery          = "query"
	ToolListTables     = "list_tables"
	ToolInspectSchema  = "inspect_schema"
	ToolAnalyzeTable   = "analyze_table"
	ToolBatchQuery     = "batch_query"
	ToolStreamQuery    = "stream_query"
	ToolCountRecords   = "count_records"
	ToolGenerateSample = "generate_sample"
)

// DefaultStreamBatchSize is the batch size the server applies when none is given.
const DefaultStreamBatchSize = 100

// ToolCaller calls a tool and decodes the JSON text it returns.
// client.McpClient satisfies it.
type ToolCaller interface {
	CallToolJSON(ctx context.Context, toolName string, arguments interface{}, out interface{}) error
}

// Tools issues typed database tool calls.
type Tools struct {
	caller ToolCaller
}

// New returns Tools calling through caller.
func New(caller ToolCaller) *Tools {
	return &Tools{caller: caller}
}

func params(values []interface{}) []interface{} {
	if values == nil {
		return []interface{}{}
	}
	return values
}

// Query runs a read-only SQL statement.
func (t *Tools) Query(ctx context.Context, sql string, parameters ...interface{}) (*QueryResult, error) {
	slog.Debug("Running query", "sql", sql)

	var result QueryResult
	err := t.caller.CallToolJSON(ctx, ToolQuery, map[string]interface{}{
		"sql":        sql,
		"parameters": params(parameters),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTables returns the names of the tables in the database.
func (t *Tools) ListTables(ctx context.Context) ([]string, error) {
	list, err := t.TableList(ctx)
	if err != nil {
		return nil, err
	}
	return list.Tables, nil
}

// TableList returns the full list_tables result.
func (t *Tools) TableList(ctx context.Context) (*TableList, error) {
	var result TableList
	if err := t.caller.CallToolJSON(ctx, ToolListTables, map[string]interface{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InspectSchema returns the schema of table.
func (t *Tools) InspectSchema(ctx context.Context, table string) (*TableSchema, error) {
	var raw json.RawMessage
	if err := t.caller.CallToolJSON(ctx, ToolInspectSchema, map[string]interface{}{"table": table}, &raw); err != nil {
		return nil, err
	}

	var schema TableSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema of %s: %w", table, err)
	}
	if err := json.Unmarshal(raw, &schema.Raw); err != nil {
		return nil, fmt.Errorf("failed to decode schema of %s: %w", table, err)
	}
	return &schema, nil
}

// AnalyzeTable returns column statistics for table. Columns restricts the
// analysis and is only sent when non-empty.
func (t *Tools) AnalyzeTable(ctx context.Context, table string, columns ...string) (*TableAnalysis, error) {
	args := map[string]interface{}{"table": table}
	if len(columns) > 0 {
		args["columns"] = columns
	}

	var result TableAnalysis
	if err := t.caller.CallToolJSON(ctx, ToolAnalyzeTable, args, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BatchQuery runs several statements in one call. With failFast the server
// stops at the first failing statement.
func (t *Tools) BatchQuery(ctx context.Context, queries []BatchQuery, failFast bool) (*BatchResult, error) {
	args := map[string]interface{}{"queries": queries}
	if failFast {
		args["fail_fast"] = true
	}

	var result BatchResult
	if err := t.caller.CallToolJSON(ctx, ToolBatchQuery, args, &result); err != nil {
		return nil, err
	}

	for _, r := range result.Results {
		if !r.Success {
			slog.Debug("Batch statement failed", "label", r.Label, "error", r.Error)
		}
	}
	return &result, nil
}

// StreamQuery runs sql and returns the rows split into batches of batchSize.
// A batchSize of zero or less uses DefaultStreamBatchSize.
func (t *Tools) StreamQuery(ctx context.Context, sql string, batchSize int, parameters ...interface{}) (*StreamResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultStreamBatchSize
	}

	args := map[string]interface{}{
		"sql":        sql,
		"batch_size": batchSize,
	}
	if len(parameters) > 0 {
		args["parameters"] = parameters
	}

	var result StreamResult
	if err := t.caller.CallToolJSON(ctx, ToolStreamQuery, args, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CountRecords counts the rows of table matching the equality conditions in where.
func (t *Tools) CountRecords(ctx context.Context, table string, where map[string]interface{}) (*CountResult, error) {
	args := map[string]interface{}{"table": table}
	if len(where) > 0 {
		args["where"] = where
	}

	var result CountResult
	if err := t.caller.CallToolJSON(ctx, ToolCountRecords, args, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateSample returns up to count rows of table, in random order when random is set.
func (t *Tools) GenerateSample(ctx context.Context, table string, count int, random bool) (*SampleResult, error) {
	args := map[string]interface{}{
		"table":  table,
		"random": random,
	}
	if count > 0 {
		args["count"] = count
	}

	var result SampleResult
	if err := t.caller.CallToolJSON(ctx, ToolGenerateSample, args, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
