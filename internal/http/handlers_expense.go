package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cartwatch/internal/core"
	"cartwatch/internal/storage"
)

type createExpenseRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	IsPurchased bool   `json:"isPurchased"`
	CreatedAt   string `json:"createdAt"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Name:        e.Name,
		Amount:      formatCents(e.Amount.Cents),
		Category:    e.Category,
		Date:        e.Date.Format("2006-01-02"),
		IsPurchased: e.IsPurchased,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list := s.store.ListExpenses
	if r.URL.Query().Get("unpurchased") == "true" {
		list = s.store.ListUnpurchasedExpenses
	}

	expenses, err := list(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid amount %q", req.Amount))
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
		return
	}

	expense := core.Expense{
		Name:     sanitizeInput(req.Name),
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(req.Category),
		Date:     date,
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateExpense(r.Context(), expense)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	created, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Expense created", "id", id, "category", created.Category)
	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteExpense(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPurchasedRequest struct {
	Purchased bool `json:"purchased"`
}

func (s *Server) handleSetPurchased(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req setPurchasedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SetExpensePurchased(r.Context(), id, req.Purchased); err != nil {
		writeStoreError(w, r, err)
		return
	}

	updated, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleMoveToCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.store.MoveExpenseToCart(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrExpensePurchased) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeStoreError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Expense moved to cart", "expense_id", id, "cart_item_id", item.ID)
	writeJSON(w, http.StatusCreated, toCartItemResponse(item))
}
