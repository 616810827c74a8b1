package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShuVe1/site-agreement/api"
	"github.com/ShuVe1/site-agreement/ledger"
	"github.com/ShuVe1/site-agreement/store/sqlite"
)

// newTestServer wires a real sqlite store, the seeded default users and
// the full router behind an httptest server, with the clock pinned to
// 2024-06-01 so overdue and stats results are stable.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, api.EnsureDefaultUsers(context.Background(), st, log))

	h := api.NewHandler(st, api.NewSessionManager("test-secret", time.Hour), log)
	h.Now = func() time.Time { return ledger.NewDate(2024, time.June, 1) }

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "login must succeed for %s", username)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func do(t *testing.T, srv *httptest.Server, token, method, path string, body any) *http.Response {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createContract(t *testing.T, srv *httptest.Server, token string, body map[string]any) int64 {
	t.Helper()
	resp := do(t, srv, token, http.MethodPost, "/api/contracts", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[struct {
		Contract struct {
			ID int64 `json:"id"`
		} `json:"contract"`
	}](t, resp)
	return out.Contract.ID
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin_BadCredentials(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "accountant", "password": "wrong"})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_MissingTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, "", http.MethodGet, "/api/contracts", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_ReturnsSeededUser(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	resp := do(t, srv, token, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[struct {
		Username string `json:"username"`
		Role     string `json:"role"`
		RoleName string `json:"roleName"`
	}](t, resp)
	assert.Equal(t, "specialist", me.Username)
	assert.Equal(t, "contract_specialist", me.Role)
	assert.Equal(t, "Договорной специалист", me.RoleName)
}

// =============================================================================
// CONTRACTS & SCHEDULE
// =============================================================================

func TestCreateContract_GeneratesMonthlySchedule(t *testing.T) {
	// A year-long contract starting 2024-01-15 yields 13 inclusive
	// monthly payments of total/12 each.
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	resp := do(t, srv, token, http.MethodPost, "/api/contracts", map[string]any{
		"contractNumber": "Д-2024/01",
		"counterparty":   "ООО Ромашка",
		"totalAmount":    1200,
		"startDate":      "2024-01-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[struct {
		Contract struct {
			TotalAmount string `json:"totalAmount"`
			EndDate     string `json:"endDate"`
			Status      string `json:"status"`
		} `json:"contract"`
		Payments int `json:"payments"`
	}](t, resp)

	assert.Equal(t, 13, out.Payments)
	assert.Equal(t, "1200.00", out.Contract.TotalAmount)
	assert.Equal(t, "active", out.Contract.Status, "status defaults to active")
	assert.Empty(t, out.Contract.EndDate, "open-ended contract keeps no stored end date")

	payResp := do(t, srv, token, http.MethodGet, "/api/payments", nil)
	require.Equal(t, http.StatusOK, payResp.StatusCode)
	payments := decode[[]struct {
		Amount         string `json:"amount"`
		DueDate        string `json:"dueDate"`
		ContractNumber string `json:"contractNumber"`
		Description    string `json:"description"`
	}](t, payResp)

	require.Len(t, payments, 13)
	assert.Equal(t, "100.00", payments[0].Amount)
	assert.Equal(t, "2024-01-15", payments[0].DueDate)
	assert.Equal(t, "Д-2024/01", payments[0].ContractNumber)
	assert.Equal(t, "Платеж за январь 2024 г.", payments[0].Description)
}

func TestCreateContract_AccountantForbidden(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "accountant", "accountant123")

	resp := do(t, srv, token, http.MethodPost, "/api/contracts", map[string]any{
		"contractNumber": "Д-2024/99",
		"counterparty":   "ООО Тест",
		"totalAmount":    100,
		"startDate":      "2024-06-01",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListContracts_SearchAndStatusFilter(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2024/01", "counterparty": "ООО Ромашка",
		"totalAmount": 100, "startDate": "2024-06-01",
	})
	createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2024/02", "counterparty": "ИП Иванов",
		"totalAmount": 100, "startDate": "2024-06-01", "status": "completed",
	})

	resp := do(t, srv, token, http.MethodGet, "/api/contracts?search=ромашка", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]struct {
		Counterparty string `json:"counterparty"`
	}](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "ООО Ромашка", found[0].Counterparty)

	resp = do(t, srv, token, http.MethodGet, "/api/contracts?status=completed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byStatus := decode[[]struct {
		ContractNumber string `json:"contractNumber"`
	}](t, resp)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Д-2024/02", byStatus[0].ContractNumber)
}

func TestDeleteContract_RemovesPayments(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	id := createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2024/01", "counterparty": "ООО Ромашка",
		"totalAmount": 1200, "startDate": "2024-06-01",
	})

	resp := do(t, srv, token, http.MethodDelete, fmt.Sprintf("/api/contracts/%d", id), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	payResp := do(t, srv, token, http.MethodGet, "/api/payments", nil)
	require.Equal(t, http.StatusOK, payResp.StatusCode)
	payments := decode[[]struct{}](t, payResp)
	assert.Empty(t, payments)
}

func TestUpdateContract_OmittedFieldsKeepStoredValues(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	id := createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2024/01", "counterparty": "ООО Ромашка",
		"totalAmount": 1200, "startDate": "2024-06-01", "endDate": "2025-06-01",
	})

	resp := do(t, srv, token, http.MethodPut, fmt.Sprintf("/api/contracts/%d", id), map[string]any{
		"counterparty": "ООО Лютик",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[struct {
		ContractNumber string `json:"contractNumber"`
		Counterparty   string `json:"counterparty"`
		TotalAmount    string `json:"totalAmount"`
		EndDate        string `json:"endDate"`
	}](t, resp)

	assert.Equal(t, "ООО Лютик", updated.Counterparty)
	assert.Equal(t, "Д-2024/01", updated.ContractNumber)
	assert.Equal(t, "1200.00", updated.TotalAmount)
	assert.Equal(t, "2025-06-01", updated.EndDate, "omitted end date is kept, not cleared")
}

func TestGetContract_NotFound(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	resp := do(t, srv, token, http.MethodGet, "/api/contracts/404", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPayments_OverdueDerivedAndMarkPaid(t *testing.T) {
	// With the clock at 2024-06-01, a contract starting 2024-01-15 has
	// five payments past due. Marking one paid moves it out of overdue.
	srv := newTestServer(t)
	specialist := login(t, srv, "specialist", "specialist123")
	accountant := login(t, srv, "accountant", "accountant123")

	createContract(t, srv, specialist, map[string]any{
		"contractNumber": "Д-2024/01", "counterparty": "ООО Ромашка",
		"totalAmount": 1200, "startDate": "2024-01-15",
	})

	resp := do(t, srv, accountant, http.MethodGet, "/api/payments?status=overdue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	overdue := decode[[]struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}](t, resp)
	require.Len(t, overdue, 5, "Jan through May due dates are past 2024-06-01")
	assert.Equal(t, "overdue", overdue[0].Status)

	// Accountant marks the oldest one paid.
	payResp := do(t, srv, accountant, http.MethodPost, fmt.Sprintf("/api/payments/%d/paid", overdue[0].ID), nil)
	require.Equal(t, http.StatusOK, payResp.StatusCode)
	paid := decode[struct {
		Status   string `json:"status"`
		PaidDate string `json:"paidDate"`
	}](t, payResp)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, "2024-06-01", paid.PaidDate)

	resp = do(t, srv, accountant, http.MethodGet, "/api/payments?status=overdue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]struct{}](t, resp), 4)
}

func TestMarkPaymentPaid_SpecialistForbidden(t *testing.T) {
	srv := newTestServer(t)
	specialist := login(t, srv, "specialist", "specialist123")

	createContract(t, srv, specialist, map[string]any{
		"contractNumber": "Д-2024/01", "counterparty": "ООО Ромашка",
		"totalAmount": 1200, "startDate": "2024-06-01",
	})

	resp := do(t, srv, specialist, http.MethodPost, "/api/payments/1/paid", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestStats_MonthBucket(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	// Starts in the as-of month (June 2024).
	createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2024/06", "counterparty": "ООО Июнь",
		"totalAmount": 600, "startDate": "2024-06-10",
	})
	// Different year, must not count.
	createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2023/06", "counterparty": "ООО Прошлый",
		"totalAmount": 999, "startDate": "2023-06-10",
	})

	resp := do(t, srv, token, http.MethodGet, "/api/reports/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[struct {
		MonthTotal string `json:"monthTotal"`
		MonthCount int    `json:"monthCount"`
		AsOf       string `json:"asOf"`
	}](t, resp)
	assert.Equal(t, "600.00", stats.MonthTotal)
	assert.Equal(t, 1, stats.MonthCount)
	assert.Equal(t, "2024-06-01", stats.AsOf)
}

func TestExport_CSVAttachment(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "specialist", "specialist123")

	createContract(t, srv, token, map[string]any{
		"contractNumber": "Д-2024/01", "counterparty": "ООО Ромашка",
		"totalAmount": "500.5", "startDate": "2024-06-01", "endDate": "2025-06-01",
	})

	resp := do(t, srv, token, http.MethodGet, "/api/reports/export", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="contracts_2024-06-01.csv"`, resp.Header.Get("Content-Disposition"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Номер договора,Контрагент,Сумма,Дата начала,Дата окончания,Статус", lines[0])
	assert.Equal(t, "Д-2024/01,ООО Ромашка,500.5,2024-06-01,2025-06-01,active", lines[1])
}

// =============================================================================
// USERS
// =============================================================================

func TestUsers_ManagerOnly(t *testing.T) {
	srv := newTestServer(t)
	accountant := login(t, srv, "accountant", "accountant123")
	manager := login(t, srv, "manager", "manager123")

	resp := do(t, srv, accountant, http.MethodGet, "/api/users", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, srv, manager, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]struct {
		Username string `json:"username"`
	}](t, resp)
	assert.Len(t, users, 3)
}

func TestUpdateUser_RejectsUnknownRoleWithoutMutation(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "manager", "manager123")

	resp := do(t, srv, manager, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}](t, resp)

	var target struct {
		ID   int64
		Role string
	}
	for _, u := range users {
		if u.Username == "accountant" {
			target.ID, target.Role = u.ID, u.Role
		}
	}
	require.NotZero(t, target.ID)

	resp = do(t, srv, manager, http.MethodPut, fmt.Sprintf("/api/users/%d", target.ID), map[string]string{
		"fullName": "Hacked", "role": "superadmin",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing changed.
	resp = do(t, srv, manager, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[[]struct {
		ID       int64  `json:"id"`
		Role     string `json:"role"`
		FullName string `json:"fullName"`
	}](t, resp)
	for _, u := range after {
		if u.ID == target.ID {
			assert.Equal(t, target.Role, u.Role)
			assert.NotEqual(t, "Hacked", u.FullName)
		}
	}
}

func TestDeleteUser_SelfRejected(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "manager", "manager123")

	me := do(t, srv, manager, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, me.StatusCode)
	self := decode[struct {
		ID int64 `json:"id"`
	}](t, me)

	resp := do(t, srv, manager, http.MethodDelete, fmt.Sprintf("/api/users/%d", self.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
