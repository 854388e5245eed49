package testserver

import "fmt"

// SalesDatabase returns a fixture modelled on the demo SQLite database with
// customers, products and sales tables.
func SalesDatabase() *Database {
	return &Database{
		Type:   "sqlite",
		Tables: []string{"customers", "products", "sales"},
		Schemas: map[string]map[string]interface{}{
			"customers": schema("customers", "id", "name", "email", "country", "created_at"),
			"products":  schema("products", "id", "name", "category", "price"),
			"sales":     schema("sales", "id", "customer_id", "product_id", "amount", "quantity", "discount", "status", "created_at"),
		},
		Analyses: map[string]map[string]interface{}{
			"sales": {
				"table":       "sales",
				"total_rows":  1250,
				"sample_size": 100,
				"schema":      nil,
				"statistics": map[string]interface{}{
					"id":       stats("integer", 0, 1250),
					"amount":   stats("float", 0, 1100),
					"discount": stats("float", 900, 5),
					"status":   stats("string", 0, 3),
				},
			},
			"empty": {
				"table":       "empty",
				"total_rows":  0,
				"sample_size": 0,
				"statistics":  map[string]interface{}{},
			},
		},
		Counts: map[string]int64{
			"customers": 42,
			"products":  12,
			"sales":     1250,
		},
		Queries: []CannedQuery{
			{Match: "total_tables", Rows: rows(map[string]interface{}{"total_tables": 3})},
			{Match: "pragma_table_info", Rows: rows(
				map[string]interface{}{"name": "sales", "column_count": 8},
				map[string]interface{}{"name": "customers", "column_count": 5},
				map[string]interface{}{"name": "products", "column_count": 4},
				map[string]interface{}{"name": "sqlite_sequence", "column_count": 2},
			)},
			{Match: "oldest_record", Rows: rows(map[string]interface{}{
				"total_records": 1250,
				"oldest_record": "2024-01-01 09:00:00",
				"newest_record": "2024-03-31 18:30:00",
			})},
			{Match: "COUNT(*) as count FROM customers", Rows: rows(map[string]interface{}{"count": 42})},
			{Match: "COUNT(*) as count FROM sales", Rows: rows(map[string]interface{}{"count": 1250})},
			{Match: "total_revenue", Rows: rows(
				map[string]interface{}{"name": "Alice Johnson", "total_revenue": 4520.5},
				map[string]interface{}{"name": "Bob Smith", "total_revenue": 3980.25},
				map[string]interface{}{"name": "Carol White", "total_revenue": 2750},
			)},
			{Match: "avg_amount", Rows: rows(map[string]interface{}{"avg_amount": 87.456})},
			{Match: "DATE(created_at) as date", Rows: rows(
				map[string]interface{}{"date": "2024-03-29", "orders": 14, "revenue": 1204.3},
				map[string]interface{}{"date": "2024-03-30", "orders": 9, "revenue": 845},
			)},
			{Match: "COUNT(DISTINCT customer_id)", Rows: rows(map[string]interface{}{
				"customers": 1234,
				"orders":    5678,
				"revenue":   1234567.891,
				"avg_order": 217.4418,
			})},
			{Match: "p.category", Rows: rows(
				map[string]interface{}{"category": "Electronics", "units_sold": 310, "revenue": 45210.5},
				map[string]interface{}{"category": "Books", "units_sold": 1200, "revenue": 18000},
				map[string]interface{}{"category": "Garden", "units_sold": 75, "revenue": 999.99},
			)},
			{Match: "order_count", Rows: rows(map[string]interface{}{"day_of_week": "1", "order_count": 57})},
			{Match: "CASE WHEN status", Rows: trainingRows(250)},
			{Match: "FROM customers", Rows: rows(
				map[string]interface{}{"id": 1, "name": "Alice Johnson", "country": "US"},
				map[string]interface{}{"id": 2, "name": "Bob Smith", "country": "UK"},
				map[string]interface{}{"id": 3, "name": "Carol White", "country": nil},
			)},
		},
	}
}

func rows(values ...map[string]interface{}) []map[string]interface{} {
	return values
}

func schema(table string, columns ...string) map[string]interface{} {
	cols := make([]map[string]interface{}, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, map[string]interface{}{
			"Name":       c,
			"Type":       "TEXT",
			"Nullable":   c != "id",
			"PrimaryKey": c == "id",
		})
	}
	return map[string]interface{}{
		"Name":    table,
		"Columns": cols,
		"Indexes": []map[string]interface{}{
			{"Name": fmt.Sprintf("idx_%s_id", table), "Columns": []string{"id"}, "Unique": true},
		},
		"ForeignKeys": []map[string]interface{}{},
	}
}

func stats(dataType string, nullCount, uniqueCount int) map[string]interface{} {
	return map[string]interface{}{
		"data_type":    dataType,
		"null_count":   nullCount,
		"unique_count": uniqueCount,
	}
}

func trainingRows(n int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		completed := 1
		if i%5 == 4 {
			completed = 0
		}
		out = append(out, map[string]interface{}{
			"amount":      19.99 + float64(i),
			"quantity":    1 + i%3,
			"discount":    0,
			"hour":        fmt.Sprintf("%02d", 9+i%10),
			"day_of_week": fmt.Sprintf("%d", i%7),
			"completed":   completed,
		})
	}
	return out
}
