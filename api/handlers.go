/*
handlers.go - HTTP handlers for the contract payment system

PURPOSE:
  Exposes the record store and the ledger core over a JSON API. Handlers
  carry no business rules: schedule generation, status resolution and
  aggregation all live in the ledger package; role gating lives in the
  access table.

ENDPOINTS:
  Auth:
    POST   /api/login                  Authenticate, receive bearer token
    GET    /api/me                     Current user

  Contracts:
    GET    /api/contracts              List (search + status filter)
    POST   /api/contracts              Create + generate payment schedule
    GET    /api/contracts/{id}         Get one
    PUT    /api/contracts/{id}         Edit fields (schedule untouched)
    DELETE /api/contracts/{id}         Delete, cascades to payments

  Payments:
    GET    /api/payments               List (status filter, incl. overdue)
    POST   /api/payments/{id}/paid     Mark a pending payment paid

  Reports:
    GET    /api/reports/stats          Month/quarter/overdue aggregates
    GET    /api/reports/export         CSV download of the contract register

  Users (manager only):
    GET    /api/users                  List
    PUT    /api/users/{id}             Edit full name and role
    DELETE /api/users/{id}             Delete (not yourself)

ERROR HANDLING:
  Errors come back as JSON with the appropriate status:
  - 400 validation failures, malformed input, out-of-enum role
  - 401 missing/expired session, bad credentials
  - 403 role lacks the required permission
  - 404 record not found
  - 409 conflicts (duplicate username)
  - 500 storage failures

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware wiring
  - session.go: bearer-token sessions
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ShuVe1/site-agreement/access"
	"github.com/ShuVe1/site-agreement/ledger"
	"github.com/ShuVe1/site-agreement/lib/sl"
	"github.com/ShuVe1/site-agreement/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for the HTTP layer.
type Handler struct {
	Store    store.Store
	Sessions *SessionManager
	Log      *slog.Logger

	// Schedule and QuarterMode are the two configurable business knobs.
	Schedule    ledger.ScheduleOptions
	QuarterMode ledger.QuarterMode

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewHandler(st store.Store, sessions *SessionManager, log *slog.Logger) *Handler {
	return &Handler{
		Store:    st,
		Sessions: sessions,
		Log:      log,
		Now:      time.Now,
	}
}

func (h *Handler) now() time.Time { return h.Now() }

// =============================================================================
// MIDDLEWARE
// =============================================================================

// Authenticate parses the bearer token, reloads the user and stashes it
// in the request context. Reloading means a role change applies on the
// very next request, not at token expiry.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}

		claims, err := h.Sessions.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session", err)
			return
		}

		user, err := h.Store.GetUser(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load user", err)
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Session user no longer exists", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Require gates a route group on one permission of the current role.
func (h *Handler) Require(allowed func(access.PermissionSet) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
				return
			}
			if !allowed(access.PermissionsFor(user.Role)) {
				writeError(w, http.StatusForbidden, "Role lacks permission for this action", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login checks the credentials and issues a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}
	// Plain equality check; per scope this is a placeholder, not a
	// security boundary.
	if user == nil || user.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := h.Sessions.Issue(*user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue session", err)
		return
	}

	h.Log.Info("user logged in", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(*user)})
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns contracts filtered by a case-insensitive search
// over number/counterparty and an optional status.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	search := strings.ToLower(r.URL.Query().Get("search"))
	status := r.URL.Query().Get("status")

	dtos := make([]ContractDTO, 0, len(contracts))
	for _, c := range contracts {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.ContractNumber), search) &&
			!strings.Contains(strings.ToLower(c.Counterparty), search) {
			continue
		}
		if status != "" && string(c.Status) != status {
			continue
		}
		dtos = append(dtos, toContractDTO(c))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateContract stores the contract and synchronously generates its
// monthly payment schedule.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate (use YYYY-MM-DD)", err)
		return
	}
	var endDate time.Time
	if req.EndDate != "" {
		if endDate, err = time.Parse(dateLayout, req.EndDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid endDate (use YYYY-MM-DD)", err)
			return
		}
	}

	status := ledger.ContractStatus(req.Status)
	if req.Status == "" {
		status = ledger.ContractActive
	}

	user, _ := UserFrom(r.Context())
	contract := ledger.Contract{
		ContractNumber: req.ContractNumber,
		Counterparty:   req.Counterparty,
		TotalAmount:    req.TotalAmount,
		StartDate:      ledger.DateOnly(startDate),
		EndDate:        endDate,
		Status:         status,
		UserID:         user.ID,
	}

	id, err := h.Store.AddContract(r.Context(), contract)
	if err != nil {
		writeStoreError(w, "Failed to create contract", err)
		return
	}
	contract.ID = id

	payments := ledger.GenerateSchedule(id, contract.TotalAmount, contract.StartDate, contract.EndDate, h.Schedule)
	for _, p := range payments {
		if _, err := h.Store.AddPayment(r.Context(), p); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store payment schedule", err)
			return
		}
	}

	h.Log.Info("contract created",
		slog.Int64("id", id),
		slog.String("number", contract.ContractNumber),
		slog.Int("payments", len(payments)))

	writeJSON(w, http.StatusCreated, CreateContractResponse{
		Contract: toContractDTO(contract),
		Payments: len(payments),
	})
}

// GetContract returns one contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	contract, err := h.Store.GetContract(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if contract == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toContractDTO(*contract))
}

// UpdateContract edits contract fields. The payment schedule generated at
// creation time is left untouched; amounts and dates of existing payments
// do not follow contract edits.
//
// Fields left at their zero value keep the stored value, so an end date
// cannot be cleared and an amount cannot be set to zero through this
// endpoint. Delete and recreate the contract to change either.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	existing, err := h.Store.GetContract(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.ContractNumber != "" {
		existing.ContractNumber = req.ContractNumber
	}
	if req.Counterparty != "" {
		existing.Counterparty = req.Counterparty
	}
	if !req.TotalAmount.IsZero() {
		existing.TotalAmount = req.TotalAmount
	}
	if req.StartDate != "" {
		startDate, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startDate (use YYYY-MM-DD)", err)
			return
		}
		existing.StartDate = ledger.DateOnly(startDate)
	}
	if req.EndDate != "" {
		endDate, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid endDate (use YYYY-MM-DD)", err)
			return
		}
		existing.EndDate = ledger.DateOnly(endDate)
	}
	if req.Status != "" {
		existing.Status = ledger.ContractStatus(req.Status)
	}

	if err := h.Store.UpdateContract(r.Context(), *existing); err != nil {
		writeStoreError(w, "Failed to update contract", err)
		return
	}

	writeJSON(w, http.StatusOK, toContractDTO(*existing))
}

// DeleteContract removes a contract and all its payments.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteContract(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to delete contract", err)
		return
	}

	h.Log.Info("contract deleted", slog.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns payments joined with their contract's number and
// counterparty. The status filter accepts pending, paid and overdue;
// overdue selects on effective status.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	byID := make(map[int64]*ledger.Contract, len(contracts))
	for i := range contracts {
		byID[contracts[i].ID] = &contracts[i]
	}

	asOf := h.now()
	filtered := ledger.FilterPayments(payments, ledger.PaymentStatus(r.URL.Query().Get("status")), asOf)

	dtos := make([]PaymentDTO, 0, len(filtered))
	for _, p := range filtered {
		dtos = append(dtos, toPaymentDTO(p, byID[p.ContractID], asOf))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// MarkPaymentPaid records a payment as paid today. Marking an already
// paid payment again changes nothing.
func (h *Handler) MarkPaymentPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	payment, err := h.Store.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payment", err)
		return
	}
	if payment == nil {
		writeError(w, http.StatusNotFound, "Payment not found", nil)
		return
	}

	asOf := h.now()
	ledger.MarkPaid(payment, asOf)

	if err := h.Store.UpdatePayment(r.Context(), *payment); err != nil {
		writeStoreError(w, "Failed to update payment", err)
		return
	}

	h.Log.Info("payment marked paid", slog.Int64("id", id))

	contract, err := h.Store.GetContract(r.Context(), payment.ContractID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*payment, contract, asOf))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetStats computes the month/quarter/overdue aggregates as of today.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}
	payments, err := h.Store.ListPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	asOf := h.now()
	stats := ledger.ComputeStats(contracts, payments, asOf, h.QuarterMode)
	writeJSON(w, http.StatusOK, toStatsDTO(stats, asOf))
}

// ExportContracts streams the contract register as a CSV attachment.
func (h *Handler) ExportContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	var buf bytes.Buffer
	if err := ledger.ExportContractsCSV(&buf, contracts); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export contracts", err)
		return
	}

	filename := fmt.Sprintf("contracts_%s.csv", h.now().Format(dateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users (passwords never leave the store layer).
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateUser edits a user's full name and role. A role outside the enum
// is rejected with no mutation applied.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role", err)
		return
	}

	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	user.FullName = req.FullName
	user.Role = role

	if err := h.Store.UpdateUser(r.Context(), *user); err != nil {
		writeStoreError(w, "Failed to update user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// DeleteUser removes a user. Deleting your own account is rejected.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	current, _ := UserFrom(r.Context())
	if current.ID == id {
		writeError(w, http.StatusBadRequest, "Cannot delete your own account", nil)
		return
	}

	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// writeStoreError maps the store error contract onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, msg, err)
	case errors.Is(err, ledger.ErrConflict):
		writeError(w, http.StatusConflict, msg, err)
	case errors.Is(err, ledger.ErrInvalid):
		writeError(w, http.StatusBadRequest, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]any{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", sl.Err(err))
	}
}
