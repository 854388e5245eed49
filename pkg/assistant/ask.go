package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/traego/mcp-db-assistant/pkg/dbtools"
	"github.com/traego/mcp-db-assistant/pkg/utils"
)

// NotUnderstood is the answer to a question no rule matches.
const NotUnderstood = "I couldn't understand that question. Try asking about counts, averages, or top records."

// Ask answers question by keyword matching on its lowercased text. The
// first keyword group that matches decides the answer; if its inner test
// fails, no later group is tried and NotUnderstood is returned.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	ctx = withTrace(ctx)
	q := strings.ToLower(question)

	utils.GetLogger().WithContext(ctx).Debug("Answering question", "question", question)

	switch {
	case strings.Contains(q, "how many"):
		for _, table := range a.dbCtx.Tables {
			if strings.Contains(q, strings.ToLower(table)) {
				return a.countRecords(ctx, table)
			}
		}

	case strings.Contains(q, "top") && strings.Contains(q, "by"):
		if strings.Contains(q, "customers") && strings.Contains(q, "revenue") {
			return a.topCustomersByRevenue(ctx)
		}

	case strings.Contains(q, "average") || strings.Contains(q, "avg"):
		if strings.Contains(q, "order") || strings.Contains(q, "sale") {
			return a.averageOrderValue(ctx)
		}

	case strings.Contains(q, "trend") || strings.Contains(q, "over time"):
		return a.salesTrend(ctx)
	}

	return NotUnderstood, nil
}

// withTrace tags ctx with a trace id unless it already carries one.
func withTrace(ctx context.Context) context.Context {
	if utils.GetTraceId(ctx) != "" {
		return ctx
	}
	ctx, _ = utils.WithNewTraceId(ctx)
	return ctx
}

func firstRow(result *dbtools.QueryResult) (dbtools.Row, error) {
	row := result.First()
	if row == nil {
		return nil, fmt.Errorf("query returned no rows")
	}
	return row, nil
}

func (a *Assistant) countRecords(ctx context.Context, table string) (string, error) {
	result, err := a.tools.Query(ctx, countSQL(table))
	if err != nil {
		return "", err
	}
	row, err := firstRow(result)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("There are %d records in the %s table.", row.Int("count"), table), nil
}

func (a *Assistant) topCustomersByRevenue(ctx context.Context) (string, error) {
	result, err := a.tools.Query(ctx, topCustomersByRevenueSQL)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Top 5 customers by revenue:\n")
	for i, row := range result.Results {
		fmt.Fprintf(&b, "%d. %s: $%s\n", i+1, row.String("name"), money(row.Float("total_revenue")))
	}
	return b.String(), nil
}

func (a *Assistant) averageOrderValue(ctx context.Context) (string, error) {
	result, err := a.tools.Query(ctx, averageOrderValueSQL)
	if err != nil {
		return "", err
	}
	row, err := firstRow(result)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("The average order value is $%s", money(row.Float("avg_amount"))), nil
}

func (a *Assistant) salesTrend(ctx context.Context) (string, error) {
	result, err := a.tools.Query(ctx, salesTrendSQL)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Sales trend for the last 7 days:\n")
	for _, row := range result.Results {
		fmt.Fprintf(&b, "%s: %d orders, $%s\n", row.String("date"), row.Int("orders"), money(row.Float("revenue")))
	}
	return b.String(), nil
}
