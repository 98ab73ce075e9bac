package http

import (
	"fmt"
	"net/http"

	"cartwatch/internal/core"
)

type budgetResponse struct {
	TotalBudget *string `json:"totalBudget"`
}

func toBudgetResponse(settings core.UserSettings) budgetResponse {
	if settings.TotalBudget == nil {
		return budgetResponse{}
	}
	s := formatCents(settings.TotalBudget.Cents)
	return budgetResponse{TotalBudget: &s}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(settings))
}

type setBudgetRequest struct {
	TotalBudget *string `json:"totalBudget"`
}

// handleSetBudget replaces the monthly budget. A null budget clears it.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var budget *core.Money
	if req.TotalBudget != nil {
		cents, err := core.ParseDecimalToCents(*req.TotalBudget)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid budget %q", *req.TotalBudget))
			return
		}
		budget = &core.Money{Cents: cents}
	}

	if err := s.store.UpsertBudget(r.Context(), budget); err != nil {
		writeStoreError(w, r, err)
		return
	}

	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(settings))
}
