package assistant

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

var weekdays = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// money renders v with two decimals and no grouping: 1234.5 -> "1234.50".
func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// groupedMoney renders v with two decimals and thousands separators: 1234.5 -> "1,234.50".
func groupedMoney(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// count renders n with thousands separators.
func count(n int64) string {
	return humanize.Comma(n)
}

// weekday maps SQLite's strftime('%w') day number to its name.
func weekday(n int64) (string, bool) {
	if n < 0 || n >= int64(len(weekdays)) {
		return "", false
	}
	return weekdays[n], true
}
