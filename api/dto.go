/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

  Dates cross the wire as YYYY-MM-DD strings; money as fixed two-decimal
  strings (display rounding happens here, the core keeps full precision).
  Amounts in requests unmarshal through decimal.Decimal, which accepts
  both JSON numbers and strings.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ShuVe1/site-agreement/access"
	"github.com/ShuVe1/site-agreement/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// =============================================================================
// USERS
// =============================================================================

type UserDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	RoleName string `json:"roleName"`
	FullName string `json:"fullName"`
}

type UpdateUserRequest struct {
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func toUserDTO(u ledger.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		RoleName: access.Role(u.Role).DisplayName(),
		FullName: u.FullName,
	}
}

// =============================================================================
// CONTRACTS
// =============================================================================

type ContractDTO struct {
	ID             int64  `json:"id"`
	ContractNumber string `json:"contractNumber"`
	Counterparty   string `json:"counterparty"`
	TotalAmount    string `json:"totalAmount"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate,omitempty"`
	Status         string `json:"status"`
	StatusName     string `json:"statusName"`
	UserID         int64  `json:"userId"`
}

type CreateContractRequest struct {
	ContractNumber string          `json:"contractNumber"`
	Counterparty   string          `json:"counterparty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate,omitempty"`
	Status         string          `json:"status,omitempty"`
}

type CreateContractResponse struct {
	Contract ContractDTO `json:"contract"`
	Payments int         `json:"payments"`
}

func toContractDTO(c ledger.Contract) ContractDTO {
	dto := ContractDTO{
		ID:             c.ID,
		ContractNumber: c.ContractNumber,
		Counterparty:   c.Counterparty,
		TotalAmount:    c.TotalAmount.StringFixed(2),
		StartDate:      c.StartDate.Format(dateLayout),
		Status:         string(c.Status),
		StatusName:     c.Status.DisplayName(),
		UserID:         c.UserID,
	}
	if !c.EndDate.IsZero() {
		dto.EndDate = c.EndDate.Format(dateLayout)
	}
	return dto
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO carries the effective status: a pending payment past its due
// date shows up as overdue here even though "overdue" is never stored.
type PaymentDTO struct {
	ID             int64  `json:"id"`
	ContractID     int64  `json:"contractId"`
	ContractNumber string `json:"contractNumber"`
	Counterparty   string `json:"counterparty"`
	Amount         string `json:"amount"`
	DueDate        string `json:"dueDate"`
	PaidDate       string `json:"paidDate,omitempty"`
	Status         string `json:"status"`
	StatusName     string `json:"statusName"`
	Description    string `json:"description"`
}

func toPaymentDTO(p ledger.Payment, contract *ledger.Contract, asOf time.Time) PaymentDTO {
	effective := ledger.EffectiveStatus(p, asOf)
	dto := PaymentDTO{
		ID:             p.ID,
		ContractID:     p.ContractID,
		ContractNumber: "N/A",
		Counterparty:   "N/A",
		Amount:         p.Amount.StringFixed(2),
		DueDate:        p.DueDate.Format(dateLayout),
		Status:         string(effective),
		StatusName:     effective.DisplayName(),
		Description:    p.Description,
	}
	if contract != nil {
		dto.ContractNumber = contract.ContractNumber
		dto.Counterparty = contract.Counterparty
	}
	if !p.PaidDate.IsZero() {
		dto.PaidDate = p.PaidDate.Format(dateLayout)
	}
	return dto
}

// =============================================================================
// REPORTS
// =============================================================================

type StatsDTO struct {
	MonthTotal   string `json:"monthTotal"`
	MonthCount   int    `json:"monthCount"`
	QuarterTotal string `json:"quarterTotal"`
	QuarterCount int    `json:"quarterCount"`
	OverdueCount int    `json:"overdueCount"`
	OverdueTotal string `json:"overdueTotal"`
	AsOf         string `json:"asOf"`
}

func toStatsDTO(s ledger.Stats, asOf time.Time) StatsDTO {
	return StatsDTO{
		MonthTotal:   s.MonthTotal.StringFixed(2),
		MonthCount:   s.MonthCount,
		QuarterTotal: s.QuarterTotal.StringFixed(2),
		QuarterCount: s.QuarterCount,
		OverdueCount: s.OverdueCount,
		OverdueTotal: s.OverdueTotal.StringFixed(2),
		AsOf:         asOf.Format(dateLayout),
	}
}
