package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"outlay/internal/auth"
	"outlay/internal/log"
	"outlay/internal/services"
	"outlay/internal/storage"
)

type fakeVerifier struct {
	identity auth.Identity
	err      error
}

func (f fakeVerifier) Verify(ctx context.Context, credential string) (auth.Identity, error) {
	if f.err != nil {
		return auth.Identity{}, f.err
	}
	return f.identity, nil
}

type testServer struct {
	server *Server
	issuer *auth.TokenIssuer
	repo   *storage.SQLiteRepository
}

func newTestServer(t *testing.T, verifier auth.CredentialVerifier) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	svc := services.NewExpenseService(repo, nil, 10, time.Minute, logger)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	s := NewServer(":0", svc, repo, verifier, issuer, []string{"*"}, logger)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	return &testServer{server: s, issuer: issuer, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) (int64, string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/oauth/google", "", `{"credential":"valid-token"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("oauth status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		UserID int64  `json:"userId"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode oauth response: %v", err)
	}
	if resp.UserID == 0 || resp.Token == "" {
		t.Fatalf("incomplete oauth response: %+v", resp)
	}
	return resp.UserID, resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp["error"]
}

func validVerifier() fakeVerifier {
	return fakeVerifier{identity: auth.Identity{
		GoogleID: "google-123",
		Email:    "user@example.com",
		Name:     "Test User",
	}}
}

func TestGoogleOauth(t *testing.T) {
	ts := newTestServer(t, validVerifier())

	userID, token := ts.login(t)

	// same google id logs into the same account
	again, _ := ts.login(t)
	if again != userID {
		t.Fatalf("expected stable user id, got %d then %d", userID, again)
	}

	// the issued token authenticates protected routes
	rec := ts.do(t, http.MethodGet, "/expenses", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list with issued token: %d", rec.Code)
	}
}

func TestGoogleOauthRejections(t *testing.T) {
	ts := newTestServer(t, fakeVerifier{err: errors.New("bad token")})

	rec := ts.do(t, http.MethodPost, "/oauth/google", "", `{"credential":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid credential status = %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Invalid ID token" {
		t.Fatalf("error = %q", msg)
	}

	rec = ts.do(t, http.MethodPost, "/oauth/google", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing credential status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, validVerifier())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/expenses"},
		{http.MethodPost, "/expenses"},
		{http.MethodPut, "/expenses/1"},
		{http.MethodDelete, "/expenses/1"},
		{http.MethodGet, "/expenses/summary"},
		{http.MethodGet, "/users"},
	} {
		rec := ts.do(t, tc.method, tc.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d", tc.method, tc.path, rec.Code)
		}
		if msg := decodeError(t, rec); msg == "" {
			t.Errorf("%s %s: expected error body", tc.method, tc.path)
		}
	}
}

func TestExpenseCRUD(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	userID, token := ts.login(t)

	// create
	rec := ts.do(t, http.MethodPost, "/expenses", token,
		`{"amount": 12.5, "category": "Food", "date": "2025-05-14", "description": "lunch"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Message string `json:"message"`
		ID      int64  `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Message != "Expense added" || created.ID == 0 {
		t.Fatalf("unexpected create response %+v", created)
	}

	// list
	rec = ts.do(t, http.MethodGet, "/expenses", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Expenses []expensePayload `json:"expenses"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed.Expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(listed.Expenses))
	}
	e := listed.Expenses[0]
	if e.Amount != 12.5 || e.Category != "Food" || e.Date != "2025-05-14" || e.UserID != userID {
		t.Fatalf("unexpected expense %+v", e)
	}

	// update
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/expenses/%d", created.ID), token,
		`{"amount": 20, "category": "Food", "date": "2025-05-15", "description": "dinner"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/expenses?id=%d", created.ID), token, "")
	listed.Expenses = nil
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode single list: %v", err)
	}
	if len(listed.Expenses) != 1 || listed.Expenses[0].Amount != 20 || listed.Expenses[0].Date != "2025-05-15" {
		t.Fatalf("update not reflected: %+v", listed.Expenses)
	}

	// delete
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/expenses/%d", created.ID), token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/expenses/%d", created.ID), token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete status = %d", rec.Code)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	_, token := ts.login(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"zero amount", `{"amount": 0, "category": "Food", "date": "2025-05-14"}`},
		{"negative amount", `{"amount": -5, "category": "Food", "date": "2025-05-14"}`},
		{"bad date", `{"amount": 10, "category": "Food", "date": "14-05-2025"}`},
		{"impossible date", `{"amount": 10, "category": "Food", "date": "2025-02-30"}`},
		{"empty category", `{"amount": 10, "category": "", "date": "2025-05-14"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/expenses", token, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if msg := decodeError(t, rec); msg == "" {
				t.Fatal("expected error body")
			}
		})
	}
}

func TestUpdateMissingExpense(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	_, token := ts.login(t)

	rec := ts.do(t, http.MethodPut, "/expenses/999", token,
		`{"amount": 10, "category": "Food", "date": "2025-05-14"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Expense not found" {
		t.Fatalf("error = %q", msg)
	}
}

func TestListExpensesFiltering(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	_, token := ts.login(t)

	for _, body := range []string{
		`{"amount": 12, "category": "Food", "date": "2025-05-01", "description": "lunch at cafe"}`,
		`{"amount": 950, "category": "Bills", "date": "2025-05-02", "description": "monthly rent"}`,
		`{"amount": 43, "category": "Grocery", "date": "2025-06-01", "description": "milk and bread"}`,
	} {
		if rec := ts.do(t, http.MethodPost, "/expenses", token, body); rec.Code != http.StatusOK {
			t.Fatalf("seed expense: %d %s", rec.Code, rec.Body.String())
		}
	}

	list := func(query string) []expensePayload {
		rec := ts.do(t, http.MethodGet, "/expenses"+query, token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list %q status = %d", query, rec.Code)
		}
		var resp struct {
			Expenses []expensePayload `json:"expenses"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return resp.Expenses
	}

	if got := list("?searchText=ren"); len(got) != 1 || got[0].Description != "monthly rent" {
		t.Fatalf("searchText=ren: %+v", got)
	}
	if got := list("?category=all"); len(got) != 3 {
		t.Fatalf("category=all should match everything, got %d", len(got))
	}
	if got := list("?startDate=2025-05-01&endDate=2025-05-31"); len(got) != 2 {
		t.Fatalf("May range should match 2, got %d", len(got))
	}
	if got := list("?category=food&searchText=cafe"); len(got) != 1 {
		t.Fatalf("combined filters should AND, got %d", len(got))
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	_, token := ts.login(t)

	today := time.Now().Format("2006-01-02")
	body := fmt.Sprintf(`{"amount": 12.5, "category": "Food", "date": %q}`, today)
	if rec := ts.do(t, http.MethodPost, "/expenses", token, body); rec.Code != http.StatusOK {
		t.Fatalf("seed expense: %d", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/expenses/summary", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Summaries []struct {
			Period string  `json:"period"`
			Total  float64 `json:"total"`
		} `json:"summaries"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(resp.Summaries) != 1 || resp.Summaries[0].Total != 12.5 {
		t.Fatalf("unexpected summaries %+v", resp.Summaries)
	}
	if resp.StartDate == "" || resp.EndDate == "" {
		t.Fatalf("expected resolved range, got %+v", resp)
	}

	rec = ts.do(t, http.MethodGet, "/expenses/summary?period=week", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid period status = %d", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "Invalid period") {
		t.Fatalf("error = %q", msg)
	}
}

func TestSummaryExplicitRange(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	_, token := ts.login(t)

	// Outside the current month, reachable only through an explicit range.
	body := `{"amount": 12.5, "category": "Food", "date": "2025-06-15"}`
	if rec := ts.do(t, http.MethodPost, "/expenses", token, body); rec.Code != http.StatusOK {
		t.Fatalf("seed expense: %d", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/expenses/summary?period=month&startDate=2025-06-01&endDate=2025-06-30", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Summaries []struct {
			Period string  `json:"period"`
			Total  float64 `json:"total"`
		} `json:"summaries"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.StartDate != "2025-06-01" || resp.EndDate != "2025-06-30" {
		t.Fatalf("range not honored: %s..%s", resp.StartDate, resp.EndDate)
	}
	if len(resp.Summaries) != 1 || resp.Summaries[0].Period != "2025-06-01" || resp.Summaries[0].Total != 12.5 {
		t.Fatalf("unexpected summaries %+v", resp.Summaries)
	}

	rec = ts.do(t, http.MethodGet, "/expenses/summary?startDate=01-06-2025", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed startDate status = %d", rec.Code)
	}
}

func TestUsersEndpoints(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	userID, token := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/users", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list users status = %d", rec.Code)
	}
	var resp struct {
		Users []userPayload `json:"users"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].ID != userID {
		t.Fatalf("unexpected users %+v", resp.Users)
	}

	rec = ts.do(t, http.MethodPut, "/users", token, `{"name": "Renamed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update user status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/users", token, "")
	resp.Users = nil
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if resp.Users[0].Name != "Renamed" {
		t.Fatalf("rename not applied: %+v", resp.Users[0])
	}
	if resp.Users[0].Email != "user@example.com" {
		t.Fatalf("email should be unchanged: %+v", resp.Users[0])
	}
}

func TestOwnershipIsolation(t *testing.T) {
	ts := newTestServer(t, validVerifier())
	_, token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/expenses", token,
		`{"amount": 10, "category": "Food", "date": "2025-05-14"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d", rec.Code)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// a token for a different user cannot see or touch it
	other, err := ts.repo.UpsertUserByGoogleID(context.Background(), "google-456", "other@example.com", "Other")
	if err != nil {
		t.Fatalf("seed other user: %v", err)
	}
	otherToken, err := ts.issuer.Issue(other.ID, other.Email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec = ts.do(t, http.MethodGet, "/expenses", otherToken, "")
	var listed struct {
		Expenses []expensePayload `json:"expenses"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Expenses) != 0 {
		t.Fatalf("foreign user sees %d expenses", len(listed.Expenses))
	}

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/expenses/%d", created.ID), otherToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, validVerifier())

	rec := ts.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", rec.Code)
	}
}
