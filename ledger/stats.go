/*
stats.go - Month, quarter and overdue aggregates for the reports screen

PURPOSE:
  Computes month-to-date and quarter-to-date contract totals and counts,
  plus the count and total of overdue payments, over the full record sets.

QUARTER MODES:
  The source system computed the quarter bucket with a comparison that
  mixes a 0-indexed quarter start against 1-indexed contract months:

    quarterStart = floor(month0/3) * 3          // 0, 3, 6, 9
    include if month1 > quarterStart && month1 <= quarterStart+3

  Whether that off-by-one-looking test was intended is an open question,
  so both readings are implemented: QuarterModeLiteral transcribes the
  comparison as written, QuarterModeCalendar tests plain quarter equality.
  The two are arithmetically equivalent (the strict lower bound on a
  1-indexed month cancels the 0-indexed quarter start), and the test suite
  demonstrates the agreement for every month of the year.
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type QuarterMode int

const (
	// QuarterModeLiteral reproduces the source comparison as written.
	QuarterModeLiteral QuarterMode = iota

	// QuarterModeCalendar buckets by plain calendar-quarter equality.
	QuarterModeCalendar
)

// ParseQuarterMode maps the configuration value to a mode. An empty
// string selects the default literal mode.
func ParseQuarterMode(s string) (QuarterMode, error) {
	switch s {
	case "", "literal":
		return QuarterModeLiteral, nil
	case "calendar":
		return QuarterModeCalendar, nil
	}
	return QuarterModeLiteral, fmt.Errorf("unknown quarter mode %q", s)
}

// Stats is the aggregate block rendered on the reports screen.
type Stats struct {
	MonthTotal   decimal.Decimal
	MonthCount   int
	QuarterTotal decimal.Decimal
	QuarterCount int
	OverdueCount int
	OverdueTotal decimal.Decimal
}

// ComputeStats aggregates contracts and payments as of the given date.
//
// Month bucket: contracts whose start date falls in asOf's month and year.
// Quarter bucket: contracts whose start date falls in asOf's quarter and
// year, per the selected mode. Overdue bucket: payments whose effective
// status is overdue.
func ComputeStats(contracts []Contract, payments []Payment, asOf time.Time, mode QuarterMode) Stats {
	stats := Stats{
		MonthTotal:   decimal.Zero,
		QuarterTotal: decimal.Zero,
		OverdueTotal: decimal.Zero,
	}

	for _, c := range contracts {
		if c.StartDate.Year() != asOf.Year() {
			continue
		}
		if c.StartDate.Month() == asOf.Month() {
			stats.MonthTotal = stats.MonthTotal.Add(c.TotalAmount)
			stats.MonthCount++
		}
		if inQuarter(c.StartDate.Month(), asOf.Month(), mode) {
			stats.QuarterTotal = stats.QuarterTotal.Add(c.TotalAmount)
			stats.QuarterCount++
		}
	}

	for _, p := range payments {
		if EffectiveStatus(p, asOf) == PaymentOverdue {
			stats.OverdueTotal = stats.OverdueTotal.Add(p.Amount)
			stats.OverdueCount++
		}
	}

	return stats
}

func inQuarter(month, asOfMonth time.Month, mode QuarterMode) bool {
	switch mode {
	case QuarterModeCalendar:
		return (int(month)-1)/3 == (int(asOfMonth)-1)/3
	default:
		// 0-indexed quarter start against a 1-indexed month, as written
		// in the source.
		quarterStart := ((int(asOfMonth) - 1) / 3) * 3
		return int(month) > quarterStart && int(month) <= quarterStart+3
	}
}
