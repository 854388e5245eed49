package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/traego/mcp-db-assistant/pkg/dbtools"
)

// AnalyzePerformance runs the table count, column count and sales overview
// statements in one batch and reports the ones that returned rows.
func (a *Assistant) AnalyzePerformance(ctx context.Context) (string, error) {
	ctx = withTrace(ctx)

	batch, err := a.tools.BatchQuery(ctx, performanceBatch(), false)
	if err != nil {
		return "", err
	}

	insights := []string{"Database Performance Analysis:\n"}

	for _, result := range batch.Results {
		if !result.HasRows() {
			continue
		}

		switch result.Label {
		case labelTableCount:
			insights = append(insights, fmt.Sprintf("• Total tables: %d", result.Results[0].Int("total_tables")))

		case labelLargestTables:
			insights = append(insights, "• Largest tables by column count:")
			for _, table := range result.Results[:min(3, len(result.Results))] {
				insights = append(insights, fmt.Sprintf("  - %s: %d columns", table.String("name"), table.Int("column_count")))
			}

		case labelDataOverview:
			data := result.Results[0]
			insights = append(insights,
				fmt.Sprintf("• Sales data: %d records", data.Int("total_records")),
				fmt.Sprintf("  Date range: %s to %s", data.String("oldest_record"), data.String("newest_record")),
			)
		}
	}

	return strings.Join(insights, "\n"), nil
}

// SuggestOptimizations analyzes table and suggests schema or index changes
// from the null ratio and cardinality of each column.
func (a *Assistant) SuggestOptimizations(ctx context.Context, table string) (string, error) {
	ctx = withTrace(ctx)

	analysis, err := a.tools.AnalyzeTable(ctx, table)
	if err != nil {
		return "", err
	}

	suggestions := []string{fmt.Sprintf("Optimization suggestions for '%s' table:\n", table)}

	columns := make([]string, 0, len(analysis.Statistics))
	for column := range analysis.Statistics {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		suggestions = append(suggestions, columnSuggestions(column, analysis.Statistics[column], analysis.TotalRows)...)
	}

	return strings.Join(suggestions, "\n"), nil
}

func columnSuggestions(column string, stats dbtools.ColumnStats, totalRows int64) []string {
	var out []string

	nullPercentage := 0.0
	if totalRows > 0 {
		nullPercentage = float64(stats.NullCount) / float64(totalRows) * 100
	}

	if nullPercentage > 50 {
		out = append(out, fmt.Sprintf("• Column '%s' has %.1f%% NULL values - consider removing or making optional", column, nullPercentage))
	}

	if stats.UniqueCount == totalRows && (stats.DataType == "string" || stats.DataType == "integer") {
		out = append(out, fmt.Sprintf("• Column '%s' has all unique values - good candidate for primary key or index", column))
	}

	if stats.UniqueCount < 10 && totalRows > 100 {
		out = append(out, fmt.Sprintf("• Column '%s' has low cardinality (%d unique values) - consider creating an index", column, stats.UniqueCount))
	}

	return out
}

// ExecutiveSummary reports the key metrics, top categories and busiest
// weekday of the last 30 days.
func (a *Assistant) ExecutiveSummary(ctx context.Context) (string, error) {
	ctx = withTrace(ctx)

	batch, err := a.tools.BatchQuery(ctx, executiveSummaryBatch(), false)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("EXECUTIVE SUMMARY - Last 30 Days\n\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, result := range batch.Results {
		if !result.HasRows() {
			continue
		}

		switch result.Label {
		case labelMonthlySummary:
			data := result.Results[0]
			b.WriteString("Key Metrics:\n")
			fmt.Fprintf(&b, "• Active Customers: %s\n", count(data.Int("customers")))
			fmt.Fprintf(&b, "• Total Orders: %s\n", count(data.Int("orders")))
			fmt.Fprintf(&b, "• Total Revenue: $%s\n", groupedMoney(data.Float("revenue")))
			fmt.Fprintf(&b, "• Average Order Value: $%s\n\n", money(data.Float("avg_order")))

		case labelTopCategories:
			b.WriteString("Top Performing Categories:\n")
			for i, cat := range result.Results {
				fmt.Fprintf(&b, "%d. %s: $%s (%d units)\n", i+1, cat.String("category"), groupedMoney(cat.Float("revenue")), cat.Int("units_sold"))
			}
			b.WriteString("\n")

		case labelBestDay:
			data := result.Results[0]
			day, ok := weekday(data.Int("day_of_week"))
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "Best Sales Day: %s (avg %d orders)\n\n", day, data.Int("order_count"))
		}
	}

	return b.String(), nil
}

// TrainingSample streams 90 days of sales features in batches of batchSize
// and describes the first row as a feature engineering sample.
func (a *Assistant) TrainingSample(ctx context.Context, batchSize int) (string, error) {
	ctx = withTrace(ctx)

	result, err := a.tools.StreamQuery(ctx, trainingFeaturesSQL, batchSize)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "• Total training samples: %d\n", result.TotalRows)
	fmt.Fprintf(&b, "• Batch size: %d\n", result.BatchSize)
	fmt.Fprintf(&b, "• Number of batches: %d\n", result.BatchCount)
	b.WriteString("\nFirst batch sample (for feature engineering):\n")

	if len(result.Batches) > 0 && len(result.Batches[0]) > 0 {
		sample := result.Batches[0][0]
		fmt.Fprintf(&b, "  Features: [%s]\n", strings.Join(sample.Columns(), ", "))
		fmt.Fprintf(&b, "  Sample: %s\n", sample.JSON())
	}

	return b.String(), nil
}
