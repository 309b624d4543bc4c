// Package report builds earnings summaries from settled history. Amounts
// are aggregated with decimal arithmetic so a week of float totals does not
// pick up binary rounding noise in the sums the user actually reads.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tools.zach/dev/fishcoin/internal/store"
)

// ///////////////////////////////////////////////
// Trend
// ///////////////////////////////////////////////

// barWidth is the chart width of the longest bar.
const barWidth = 20

// Day is one row of a trend report.
type Day struct {
	// Date is the calendar date.
	Date string
	// Amount is the settled or, for today, running total.
	Amount decimal.Decimal
	// Running marks today's not-yet-settled entry.
	Running bool
	// AfterWorkUse is the last recorded "HH:MM" after-hours use, if any.
	AfterWorkUse string
}

// Trend is a window of recent days with aggregate figures.
type Trend struct {
	Days  []Day
	Total decimal.Decimal
	Max   decimal.Decimal
}

// BuildTrend assembles the last n days ending at now. Days with no history
// entry appear as zero rows so the chart keeps its shape; today's row uses
// the live running total when the day has not settled yet.
func BuildTrend(state *store.AccrualState, now time.Time, n int) Trend {
	today := now.Format(store.DateLayout)
	var t Trend
	for i := n - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(store.DateLayout)
		var amount decimal.Decimal
		running := false
		if v, ok := state.History[date]; ok {
			amount = decimal.NewFromFloat(v)
		} else if date == today {
			amount = decimal.NewFromFloat(state.Money)
			running = true
		}
		t.Days = append(t.Days, Day{
			Date:         date,
			Amount:       amount,
			Running:      running,
			AfterWorkUse: state.LastAfterWorkUsage[date],
		})
		t.Total = t.Total.Add(amount)
		if amount.GreaterThan(t.Max) {
			t.Max = amount
		}
	}
	return t
}

// Render formats the trend as a fixed-width text chart for the control
// client and the log.
func (t Trend) Render() string {
	var b strings.Builder
	for _, d := range t.Days {
		bar := scaleBar(d.Amount, t.Max)
		marker := " "
		if d.Running {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s %-*s %9s", d.Date, marker, barWidth, bar, d.Amount.StringFixed(4))
		if d.AfterWorkUse != "" {
			fmt.Fprintf(&b, "  last use %s", d.AfterWorkUse)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "total %s\n", t.Total.StringFixed(4))
	return b.String()
}

func scaleBar(amount, max decimal.Decimal) string {
	if max.IsZero() || amount.IsZero() {
		return ""
	}
	n := amount.Mul(decimal.NewFromInt(barWidth)).Div(max).IntPart()
	if n < 1 {
		n = 1
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("#", int(n))
}

// ///////////////////////////////////////////////
// Totals
// ///////////////////////////////////////////////

// HistoryTotal sums every settled entry with decimal precision.
func HistoryTotal(state *store.AccrualState) decimal.Decimal {
	dates := make([]string, 0, len(state.History))
	for d := range state.History {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	var total decimal.Decimal
	for _, d := range dates {
		total = total.Add(decimal.NewFromFloat(state.History[d]))
	}
	return total
}
