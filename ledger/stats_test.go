package ledger_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShuVe1/site-agreement/ledger"
)

func contractStarting(start time.Time, total int64) ledger.Contract {
	return ledger.Contract{
		ContractNumber: "C-1",
		Counterparty:   "ООО Ромашка",
		TotalAmount:    decimal.NewFromInt(total),
		StartDate:      start,
		Status:         ledger.ContractActive,
	}
}

func TestComputeStats_MonthBucket(t *testing.T) {
	// GIVEN: One contract starting in the current month, total 600
	// THEN:  monthTotal=600.00, monthCount=1

	asOf := ledger.NewDate(2024, time.June, 10)
	contracts := []ledger.Contract{contractStarting(ledger.NewDate(2024, time.June, 1), 600)}

	stats := ledger.ComputeStats(contracts, nil, asOf, ledger.QuarterModeLiteral)

	assert.Equal(t, "600.00", stats.MonthTotal.StringFixed(2))
	assert.Equal(t, 1, stats.MonthCount)
}

func TestComputeStats_MonthBucket_ExcludesOtherYears(t *testing.T) {
	asOf := ledger.NewDate(2024, time.June, 10)
	contracts := []ledger.Contract{
		contractStarting(ledger.NewDate(2023, time.June, 1), 600),
		contractStarting(ledger.NewDate(2024, time.May, 1), 600),
	}

	stats := ledger.ComputeStats(contracts, nil, asOf, ledger.QuarterModeLiteral)

	assert.Equal(t, 0, stats.MonthCount)
	assert.True(t, stats.MonthTotal.IsZero())
}

func TestComputeStats_QuarterBucket(t *testing.T) {
	// asOf in June: Q2 is April..June.
	asOf := ledger.NewDate(2024, time.June, 10)
	contracts := []ledger.Contract{
		contractStarting(ledger.NewDate(2024, time.March, 31), 100), // Q1
		contractStarting(ledger.NewDate(2024, time.April, 1), 200),  // Q2
		contractStarting(ledger.NewDate(2024, time.June, 30), 300),  // Q2
		contractStarting(ledger.NewDate(2024, time.July, 1), 400),   // Q3
	}

	stats := ledger.ComputeStats(contracts, nil, asOf, ledger.QuarterModeLiteral)

	assert.Equal(t, 2, stats.QuarterCount)
	assert.Equal(t, "500.00", stats.QuarterTotal.StringFixed(2))
}

func TestComputeStats_QuarterModesAgree(t *testing.T) {
	// The literal transcription of the source comparison and the plain
	// calendar-quarter test bucket identically for every month pairing.
	for asOfMonth := time.January; asOfMonth <= time.December; asOfMonth++ {
		for startMonth := time.January; startMonth <= time.December; startMonth++ {
			asOf := ledger.NewDate(2024, asOfMonth, 15)
			contracts := []ledger.Contract{contractStarting(ledger.NewDate(2024, startMonth, 10), 100)}

			literal := ledger.ComputeStats(contracts, nil, asOf, ledger.QuarterModeLiteral)
			calendar := ledger.ComputeStats(contracts, nil, asOf, ledger.QuarterModeCalendar)

			require.Equal(t, calendar.QuarterCount, literal.QuarterCount,
				fmt.Sprintf("asOf=%s start=%s", asOfMonth, startMonth))
		}
	}
}

func TestComputeStats_QuarterIncludesFirstQuarterMonth(t *testing.T) {
	// Regression guard for the suspected off-by-one: January must count
	// toward Q1 when asOf is in Q1.
	asOf := ledger.NewDate(2024, time.February, 15)
	contracts := []ledger.Contract{contractStarting(ledger.NewDate(2024, time.January, 5), 250)}

	stats := ledger.ComputeStats(contracts, nil, asOf, ledger.QuarterModeLiteral)

	assert.Equal(t, 1, stats.QuarterCount)
	assert.Equal(t, "250.00", stats.QuarterTotal.StringFixed(2))
}

func TestComputeStats_OverdueBucket(t *testing.T) {
	asOf := ledger.NewDate(2024, time.June, 1)
	payments := []ledger.Payment{
		pendingPayment(ledger.NewDate(2024, time.January, 1)), // overdue
		pendingPayment(ledger.NewDate(2024, time.May, 31)),    // overdue
		pendingPayment(ledger.NewDate(2024, time.June, 1)),    // due today, not overdue
		{Status: ledger.PaymentPaid, DueDate: ledger.NewDate(2024, time.January, 1), Amount: decimal.NewFromInt(100)},
	}

	stats := ledger.ComputeStats(nil, payments, asOf, ledger.QuarterModeLiteral)

	assert.Equal(t, 2, stats.OverdueCount)
	assert.Equal(t, "200.00", stats.OverdueTotal.StringFixed(2))
}

func TestComputeStats_DecimalSumsExact(t *testing.T) {
	// Many 0.10 additions stay exact with decimals; floats would drift.
	asOf := ledger.NewDate(2024, time.June, 1)
	var payments []ledger.Payment
	for i := 0; i < 1000; i++ {
		p := pendingPayment(ledger.NewDate(2024, time.January, 1))
		p.Amount = decimal.RequireFromString("0.10")
		payments = append(payments, p)
	}

	stats := ledger.ComputeStats(nil, payments, asOf, ledger.QuarterModeLiteral)

	assert.Equal(t, "100.00", stats.OverdueTotal.StringFixed(2))
}

func TestParseQuarterMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ledger.QuarterMode
		wantErr bool
	}{
		{"", ledger.QuarterModeLiteral, false},
		{"literal", ledger.QuarterModeLiteral, false},
		{"calendar", ledger.QuarterModeCalendar, false},
		{"fiscal", ledger.QuarterModeLiteral, true},
	}
	for _, tt := range tests {
		mode, err := ledger.ParseQuarterMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, mode, "input %q", tt.in)
	}
}
