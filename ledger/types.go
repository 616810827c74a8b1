/*
Package ledger contains the business core of the contract payment system:
entity types, monthly schedule generation, effective payment status
resolution, statistics aggregation and CSV export.

KEY CONCEPTS IN THIS FILE (types.go):
  - Contract: an agreement with a counterparty, a total amount and a term
  - Payment: one monthly obligation belonging to exactly one contract
  - User: a role-differentiated operator of the system
  - Status enums with Russian display names for the UI

DESIGN PRINCIPLES:
  1. Precision: monetary amounts are decimal.Decimal, never float64
  2. Derived state stays derived: "overdue" is computed, never persisted
  3. Date-only semantics: due dates and start dates carry no time component

SEE ALSO:
  - schedule.go: payment schedule generation
  - status.go: effective status resolution
  - stats.go: month/quarter/overdue aggregation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ShuVe1/site-agreement/access"
)

// =============================================================================
// STATUS ENUMS
// =============================================================================

type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractSuspended ContractStatus = "suspended"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractActive, ContractCompleted, ContractSuspended:
		return true
	}
	return false
}

// DisplayName returns the Russian UI label for the contract status.
func (s ContractStatus) DisplayName() string {
	switch s {
	case ContractActive:
		return "Активный"
	case ContractCompleted:
		return "Завершен"
	case ContractSuspended:
		return "Приостановлен"
	}
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"

	// PaymentOverdue is a derived display status. It is never stored;
	// EffectiveStatus computes it from the pending status and the due date.
	PaymentOverdue PaymentStatus = "overdue"
)

// Storable reports whether the status may be persisted.
// Overdue exists only as a derived view of a pending payment.
func (s PaymentStatus) Storable() bool {
	return s == PaymentPending || s == PaymentPaid
}

// DisplayName returns the Russian UI label for the payment status.
func (s PaymentStatus) DisplayName() string {
	switch s {
	case PaymentPending:
		return "Ожидает оплаты"
	case PaymentPaid:
		return "Оплачен"
	case PaymentOverdue:
		return "Просрочен"
	}
	return string(s)
}

// =============================================================================
// ENTITIES
// =============================================================================

// User is an operator of the system. The password check at login is a
// plain equality comparison; this is record keeping, not a security
// boundary.
type User struct {
	ID       int64       `json:"id"`
	Username string      `json:"username" validate:"required"`
	Password string      `json:"password" validate:"required"`
	Role     access.Role `json:"role" validate:"required,role"`
	FullName string      `json:"fullName" validate:"required"`
}

// Contract is an agreement with a counterparty. A zero EndDate means the
// contract is open-ended; schedule generation then assumes a twelve-month
// term from StartDate.
type Contract struct {
	ID             int64           `json:"id"`
	ContractNumber string          `json:"contractNumber" validate:"required"`
	Counterparty   string          `json:"counterparty" validate:"required"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	StartDate      time.Time       `json:"startDate" validate:"required"`
	EndDate        time.Time       `json:"endDate,omitempty"`
	Status         ContractStatus  `json:"status" validate:"required,contract_status"`
	UserID         int64           `json:"userId"`
}

// Payment is one monthly obligation of a contract. Deleting the contract
// deletes its payments; no payment may outlive its contract.
type Payment struct {
	ID          int64           `json:"id"`
	ContractID  int64           `json:"contractId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"dueDate" validate:"required"`
	Status      PaymentStatus   `json:"status" validate:"required,stored_payment_status"`
	PaidDate    time.Time       `json:"paidDate,omitempty"`
	Description string          `json:"description"`
}

// Notification is declared in the storage schema but not used by any
// business logic.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// =============================================================================
// DATE HELPERS
// =============================================================================

// DateOnly strips the time component, keeping year/month/day in UTC.
// All due-date and start-date comparisons in this package go through it.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a date-only time.Time in UTC.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
