package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

// CannedQuery answers every query whose SQL contains Match.
type CannedQuery struct {
	Match string
	Rows  []map[string]interface{}
	Err   string
}

// Database is the fixture behind the database tools.
type Database struct {
	Type     string
	Tables   []string
	Schemas  map[string]map[string]interface{}
	Analyses map[string]map[string]interface{}
	Counts   map[string]int64
	Queries  []CannedQuery
}

func (db *Database) find(sql string) ([]map[string]interface{}, error) {
	for _, q := range db.Queries {
		if strings.Contains(sql, q.Match) {
			if q.Err != "" {
				return nil, fmt.Errorf("%s", q.Err)
			}
			return q.Rows, nil
		}
	}
	return nil, fmt.Errorf("no canned result for %q", sql)
}

func (db *Database) hasTable(table string) bool {
	for _, t := range db.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// WithDatabase registers the database tools backed by db.
func WithDatabase(db *Database) Option {
	return func(s *Server) {
		s.AddTool(protocol.Tool{Name: "query", Description: "Execute a read-only SQL query"}, db.query)
		s.AddTool(protocol.Tool{Name: "list_tables", Description: "List all tables in the database"}, db.listTables)
		s.AddTool(protocol.Tool{Name: "inspect_schema", Description: "Get the schema of a table"}, db.inspectSchema)
		s.AddTool(protocol.Tool{Name: "analyze_table", Description: "Statistical analysis of a table"}, db.analyzeTable)
		s.AddTool(protocol.Tool{Name: "batch_query", Description: "Execute several read-only queries"}, db.batchQuery)
		s.AddTool(protocol.Tool{Name: "stream_query", Description: "Execute a query and return the rows in batches"}, db.streamQuery)
		s.AddTool(protocol.Tool{Name: "count_records", Description: "Count records in a table"}, db.countRecords)
		s.AddTool(protocol.Tool{Name: "generate_sample", Description: "Return sample rows from a table"}, db.generateSample)
		db.addResources(s)
	}
}

// addResources exposes schema://database and a table://<name> resource for
// every table with a schema.
func (db *Database) addResources(s *Server) {
	s.AddResource(protocol.Resource{
		URI:         "schema://database",
		Name:        "Database Schema",
		Description: "Complete database schema",
		MimeType:    "application/json",
	}, mustJSON(map[string]interface{}{
		"database_type": db.Type,
		"tables":        db.Schemas,
	}))

	for _, table := range db.Tables {
		schema, ok := db.Schemas[table]
		if !ok {
			continue
		}
		s.AddResource(protocol.Resource{
			URI:         "table://" + table,
			Name:        "Table: " + table,
			Description: fmt.Sprintf("Schema and metadata for table %s", table),
			MimeType:    "application/json",
		}, mustJSON(schema))
	}
}

func mustJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}

func jsonResult(v interface{}) (*protocol.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	result := protocol.NewTextResult(string(data), false)
	return &result, nil
}

func errorResult(format string, args ...interface{}) (*protocol.CallToolResult, error) {
	result := protocol.NewTextResult(fmt.Sprintf(format, args...), true)
	return &result, nil
}

func (db *Database) query(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		SQL        string        `json:"sql"`
		Parameters []interface{} `json:"parameters"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	rows, err := db.find(args.SQL)
	if err != nil {
		return errorResult("Query error: %v", err)
	}

	return jsonResult(map[string]interface{}{
		"query":   args.SQL,
		"results": rows,
		"count":   len(rows),
	})
}

func (db *Database) listTables(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"database_type": db.Type,
		"tables":        db.Tables,
		"count":         len(db.Tables),
	})
}

func (db *Database) inspectSchema(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		Table string `json:"table"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	schema, ok := db.Schemas[args.Table]
	if !ok {
		return errorResult("Error inspecting table: table %s not found", args.Table)
	}
	return jsonResult(schema)
}

func (db *Database) analyzeTable(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		Table   string   `json:"table"`
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	analysis, ok := db.Analyses[args.Table]
	if !ok {
		return errorResult("Error: Table '%s' is not allowed", args.Table)
	}
	return jsonResult(analysis)
}

func (db *Database) batchQuery(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		Queries []struct {
			SQL        string        `json:"sql"`
			Parameters []interface{} `json:"parameters"`
			Label      string        `json:"label"`
		} `json:"queries"`
		FailFast bool `json:"fail_fast"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if len(args.Queries) == 0 {
		return errorResult("Error: No queries provided")
	}

	results := make([]map[string]interface{}, 0, len(args.Queries))
	for i, q := range args.Queries {
		result := map[string]interface{}{
			"index":   i,
			"label":   q.Label,
			"sql":     q.SQL,
			"count":   0,
			"success": false,
		}

		rows, err := db.find(q.SQL)
		if err != nil {
			result["error"] = fmt.Sprintf("Query error: %v", err)
			results = append(results, result)
			if args.FailFast {
				break
			}
			continue
		}

		result["results"] = rows
		result["count"] = len(rows)
		result["success"] = true
		results = append(results, result)
	}

	return jsonResult(map[string]interface{}{
		"batch_size":     len(args.Queries),
		"executed":       len(results),
		"results":        results,
		"fail_fast_mode": args.FailFast,
	})
}

func (db *Database) streamQuery(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		SQL        string        `json:"sql"`
		Parameters []interface{} `json:"parameters"`
		BatchSize  int           `json:"batch_size"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.BatchSize <= 0 {
		args.BatchSize = 100
	}

	rows, err := db.find(args.SQL)
	if err != nil {
		return errorResult("Query error: %v", err)
	}

	var batches [][]map[string]interface{}
	for i := 0; i < len(rows); i += args.BatchSize {
		end := i + args.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[i:end])
	}

	return jsonResult(map[string]interface{}{
		"query":       args.SQL,
		"total_rows":  len(rows),
		"batch_size":  args.BatchSize,
		"batch_count": len(batches),
		"batches":     batches,
		"streaming":   true,
	})
}

func (db *Database) countRecords(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		Table string                 `json:"table"`
		Where map[string]interface{} `json:"where"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if !db.hasTable(args.Table) {
		return errorResult("Error: Table '%s' is not allowed", args.Table)
	}

	return jsonResult(map[string]interface{}{
		"table":      args.Table,
		"count":      db.Counts[args.Table],
		"conditions": args.Where,
	})
}

func (db *Database) generateSample(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	var args struct {
		Table  string                 `json:"table"`
		Count  int                    `json:"count"`
		Random bool                   `json:"random"`
		Where  map[string]interface{} `json:"where"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if !db.hasTable(args.Table) {
		return errorResult("Error: Table '%s' is not allowed", args.Table)
	}
	if args.Count <= 0 {
		args.Count = 10
	}

	rows, err := db.find("FROM " + args.Table)
	if err != nil {
		return errorResult("Error generating sample: %v", err)
	}
	if len(rows) > args.Count {
		rows = rows[:args.Count]
	}

	return jsonResult(map[string]interface{}{
		"table":       args.Table,
		"sample_size": len(rows),
		"requested":   args.Count,
		"random":      args.Random,
		"conditions":  args.Where,
		"data":        rows,
	})
}

