package assistant

import (
	"fmt"

	"github.com/traego/mcp-db-assistant/pkg/dbtools"
)

// SQL templates. They target SQLite, the engine the demo database runs on.
const (
	topCustomersByRevenueSQL = `
		SELECT c.name, SUM(s.amount) as total_revenue
		FROM customers c
		JOIN sales s ON c.id = s.customer_id
		WHERE s.status = 'completed'
		GROUP BY c.id, c.name
		ORDER BY total_revenue DESC
		LIMIT 5`

	averageOrderValueSQL = "SELECT AVG(amount) as avg_amount FROM sales WHERE status = 'completed'"

	salesTrendSQL = `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as orders,
			SUM(amount) as revenue
		FROM sales
		WHERE created_at >= date('now', '-7 days')
		GROUP BY DATE(created_at)
		ORDER BY date`

	tableCountSQL = "SELECT COUNT(*) as total_tables FROM sqlite_master WHERE type='table'"

	largestTablesSQL = `
		SELECT
			name,
			(SELECT COUNT(*) FROM pragma_table_info(name)) as column_count
		FROM sqlite_master
		WHERE type='table'
		ORDER BY column_count DESC
		LIMIT 5`

	dataOverviewSQL = `
		SELECT
			COUNT(*) as total_records,
			MIN(created_at) as oldest_record,
			MAX(created_at) as newest_record
		FROM sales`

	monthlySummarySQL = `
		SELECT
			COUNT(DISTINCT customer_id) as customers,
			COUNT(*) as orders,
			SUM(amount) as revenue,
			AVG(amount) as avg_order
		FROM sales
		WHERE status = 'completed'
		AND created_at >= date('now', '-30 days')`

	topCategoriesSQL = `
		SELECT
			p.category,
			COUNT(s.id) as units_sold,
			SUM(s.amount) as revenue
		FROM sales s
		JOIN products p ON s.product_id = p.id
		WHERE s.status = 'completed'
		AND s.created_at >= date('now', '-30 days')
		GROUP BY p.category
		ORDER BY revenue DESC
		LIMIT 3`

	bestDaySQL = `
		SELECT
			strftime('%w', created_at) as day_of_week,
			COUNT(*) as order_count
		FROM sales
		WHERE created_at >= date('now', '-30 days')
		GROUP BY day_of_week
		ORDER BY order_count DESC
		LIMIT 1`

	trainingFeaturesSQL = `
		SELECT
			amount,
			quantity,
			discount,
			strftime('%H', created_at) as hour,
			strftime('%w', created_at) as day_of_week,
			CASE WHEN status = 'completed' THEN 1 ELSE 0 END as completed
		FROM sales
		WHERE created_at >= date('now', '-90 days')`
)

// Batch labels.
const (
	labelTableCount     = "table_count"
	labelLargestTables  = "largest_tables"
	labelDataOverview   = "data_overview"
	labelMonthlySummary = "monthly_summary"
	labelTopCategories  = "top_categories"
	labelBestDay        = "best_day"
)

func countSQL(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) as count FROM %s", table)
}

func performanceBatch() []dbtools.BatchQuery {
	return []dbtools.BatchQuery{
		{SQL: tableCountSQL, Label: labelTableCount},
		{SQL: largestTablesSQL, Label: labelLargestTables},
		{SQL: dataOverviewSQL, Label: labelDataOverview},
	}
}

func executiveSummaryBatch() []dbtools.BatchQuery {
	return []dbtools.BatchQuery{
		{SQL: monthlySummarySQL, Label: labelMonthlySummary},
		{SQL: topCategoriesSQL, Label: labelTopCategories},
		{SQL: bestDaySQL, Label: labelBestDay},
	}
}
