package http

import (
	"errors"
	"net/http"
	"time"

	"outlay/internal/auth"
	"outlay/internal/core"
	"outlay/internal/log"
	"outlay/internal/storage"
)

// handleCreateExpense handles POST /expenses.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	expense, err := req.toExpense(claims.UserID, 0)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	created, err := s.service.Create(r.Context(), expense)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create expense",
			log.FieldError, err, log.FieldUserID, claims.UserID)
		InternalServerError("Failed to add expense").Write(w)
		return
	}

	NewJSONResponse().MessageWithID("Expense added", created.ID).Write(w)
}

// handleListExpenses handles GET /expenses. The optional id parameter
// narrows to a single record.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	if raw := r.URL.Query().Get("id"); raw != "" {
		s.listSingleExpense(w, r, claims.UserID, raw)
		return
	}

	criteria := parseCriteria(r.URL.Query(), claims.UserID)
	expenses, err := s.service.List(r.Context(), criteria)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list expenses",
			log.FieldError, err, log.FieldUserID, claims.UserID)
		InternalServerError("Failed to fetch expenses").Write(w)
		return
	}

	payload := make([]expensePayload, len(expenses))
	for i, e := range expenses {
		payload[i] = toPayload(e)
	}
	NewJSONResponse().Body(map[string]any{"expenses": payload}).Write(w)
}

func (s *Server) listSingleExpense(w http.ResponseWriter, r *http.Request, userID int64, raw string) {
	id, err := parsePositiveInt(raw)
	if err != nil {
		BadRequestError("Invalid id").Write(w)
		return
	}

	expense, err := s.service.Get(r.Context(), userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		NewJSONResponse().Body(map[string]any{"expenses": []expensePayload{}}).Write(w)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "get expense", log.FieldError, err)
		InternalServerError("Failed to fetch expenses").Write(w)
		return
	}

	NewJSONResponse().Body(map[string]any{"expenses": []expensePayload{toPayload(expense)}}).Write(w)
}

// handleUpdateExpense handles PUT /expenses/{id}.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := parseID(r)
	if err != nil {
		BadRequestError("Invalid id").Write(w)
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	expense, err := req.toExpense(claims.UserID, id)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	err = s.service.Update(r.Context(), expense)
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("Expense not found").Write(w)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "update expense",
			log.FieldError, err, log.FieldExpenseID, id)
		InternalServerError("Failed to update expense").Write(w)
		return
	}

	NewJSONResponse().Message("Expense updated").Write(w)
}

// handleDeleteExpense handles DELETE /expenses/{id}.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := parseID(r)
	if err != nil {
		BadRequestError("Invalid id").Write(w)
		return
	}

	err = s.service.Delete(r.Context(), claims.UserID, id)
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("Expense not found").Write(w)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "delete expense",
			log.FieldError, err, log.FieldExpenseID, id)
		InternalServerError("Failed to delete expense").Write(w)
		return
	}

	NewJSONResponse().Message("Expense deleted").Write(w)
}

// handleSummary handles GET /expenses/summary. The period defaults to
// month; unknown periods are rejected. Explicit startDate/endDate
// parameters replace the range the period name resolves to.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	query := r.URL.Query()

	period := query.Get("period")
	if period == "" {
		period = core.PeriodMonth
	}
	if !core.ValidPeriod(period) {
		BadRequestError("Invalid period, use day, month, quarter, or year").Write(w)
		return
	}

	rng := core.ResolveRange(period, time.Now())
	if start := query.Get("startDate"); start != "" {
		if !core.ValidDate(start) {
			BadRequestError("Invalid date format, use YYYY-MM-DD").Write(w)
			return
		}
		rng.Start = start
	}
	if end := query.Get("endDate"); end != "" {
		if !core.ValidDate(end) {
			BadRequestError("Invalid date format, use YYYY-MM-DD").Write(w)
			return
		}
		rng.End = end
	}

	totals, err := s.service.Summary(r.Context(), claims.UserID, period, rng)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "summarize expenses",
			log.FieldError, err,
			log.FieldUserID, claims.UserID,
			log.FieldPeriod, period)
		InternalServerError("Failed to fetch summary").Write(w)
		return
	}

	summaries := make([]map[string]any, len(totals))
	for i, t := range totals {
		summaries[i] = map[string]any{
			"period": t.Period,
			"total":  t.Total.Float(),
		}
	}
	NewJSONResponse().Body(map[string]any{
		"summaries": summaries,
		"startDate": rng.Start,
		"endDate":   rng.End,
	}).Write(w)
}

// writeValidationError maps core validation errors to 400 responses.
func writeValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		BadRequestError("Invalid date format, use YYYY-MM-DD").Write(w)
	case errors.Is(err, core.ErrInvalidAmount):
		BadRequestError("Amount must be a positive number").Write(w)
	default:
		BadRequestError(err.Error()).Write(w)
	}
}
