/*
status.go - Effective payment status resolution

PURPOSE:
  A payment stores only "pending" or "paid". The third status the UI and
  reports show, "overdue", is a pure function of the stored fields and the
  current date. Keeping it derived means a payment can never be stuck in a
  stale overdue state.

RESOLUTION:
  paid   -> paid, regardless of dates
  pending with dueDate < asOf (date-only) -> overdue
  pending otherwise -> pending
*/
package ledger

import "time"

// EffectiveStatus derives the display status of a payment as of a date.
func EffectiveStatus(p Payment, asOf time.Time) PaymentStatus {
	if p.Status == PaymentPaid {
		return PaymentPaid
	}
	if DateOnly(p.DueDate).Before(DateOnly(asOf)) {
		return PaymentOverdue
	}
	return PaymentPending
}

// MarkPaid records the payment as paid as of the given date.
// Idempotent: an already-paid payment keeps its original paid date.
func MarkPaid(p *Payment, asOf time.Time) {
	if p.Status == PaymentPaid {
		return
	}
	p.Status = PaymentPaid
	p.PaidDate = DateOnly(asOf)
}

// FilterPayments selects payments whose status matches the requested one.
// An empty status matches everything. Requesting "overdue" matches on
// EffectiveStatus, never on the stored field. Requesting "pending" matches
// the stored field, so payments past their due date still appear in the
// pending list (rendered there as overdue).
func FilterPayments(payments []Payment, want PaymentStatus, asOf time.Time) []Payment {
	if want == "" {
		return payments
	}
	var out []Payment
	for _, p := range payments {
		match := p.Status == want
		if want == PaymentOverdue {
			match = EffectiveStatus(p, asOf) == PaymentOverdue
		}
		if match {
			out = append(out, p)
		}
	}
	return out
}
