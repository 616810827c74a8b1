/*
schedule.go - Monthly payment schedule generation

PURPOSE:
  Given a contract's total amount, start date and optional end date,
  produce the ordered sequence of monthly payment obligations covering the
  contract term. This runs synchronously when a contract is created.

SEMANTICS:
  - A zero end date means a twelve-month term: end = start plus one year.
  - The cursor starts at the start date and steps by one calendar month,
    emitting a payment while cursor <= end (inclusive).
  - Each installment is totalAmount divided by a fixed divisor of 12,
    regardless of how many installments the term actually produces. The
    divisor is configurable; DivideByCount switches to amortization over
    the actual installment count.
  - Month stepping uses time.Time.AddDate, so month-end overflow
    normalizes forward: Jan 31 + 1 month lands on Mar 2 in a leap year and
    Mar 3 otherwise. The overflow is deterministic and covered by tests.

SEE ALSO:
  - status.go: effective status of the generated payments
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDivisor is the fixed amortization divisor: every contract is
// split as if it ran exactly twelve months, whatever its real term.
const DefaultDivisor = 12

// ScheduleOptions controls installment amortization.
type ScheduleOptions struct {
	// Divisor for the installment amount. Zero means DefaultDivisor.
	Divisor int

	// DivideByCount divides the total by the actual number of generated
	// installments instead of the fixed divisor. Overrides Divisor.
	DivideByCount bool
}

// GenerateSchedule produces the pending monthly payments for a contract.
//
// start and end are treated date-only. A zero end defaults to one year
// after start (same month and day). If start is after end the schedule is
// empty; that is not an error.
func GenerateSchedule(contractID int64, total decimal.Decimal, start, end time.Time, opts ScheduleOptions) []Payment {
	start = DateOnly(start)
	if end.IsZero() {
		end = start.AddDate(1, 0, 0)
	} else {
		end = DateOnly(end)
	}
	if start.After(end) {
		return nil
	}

	dueDates := monthlyCursor(start, end)

	divisor := opts.Divisor
	if divisor <= 0 {
		divisor = DefaultDivisor
	}
	if opts.DivideByCount {
		divisor = len(dueDates)
	}
	installment := total.Div(decimal.NewFromInt(int64(divisor)))

	payments := make([]Payment, 0, len(dueDates))
	for _, due := range dueDates {
		payments = append(payments, Payment{
			ContractID:  contractID,
			Amount:      installment,
			DueDate:     due,
			Status:      PaymentPending,
			Description: PaymentDescription(due),
		})
	}
	return payments
}

// monthlyCursor walks from start to end inclusive in calendar-month steps.
// Overflowing short months normalizes forward (AddDate semantics), and the
// following step continues from the normalized date.
func monthlyCursor(start, end time.Time) []time.Time {
	var dates []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		dates = append(dates, cur)
	}
	return dates
}

// PaymentDescription renders the human-readable "payment for month year"
// label shown in the payments table, e.g. "Платеж за январь 2024 г.".
func PaymentDescription(due time.Time) string {
	return fmt.Sprintf("Платеж за %s %d г.", ruMonths[due.Month()-1], due.Year())
}

var ruMonths = [12]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}
