package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cartwatch/internal/core"
)

type createCartItemRequest struct {
	Name           string   `json:"name"`
	EstimatedPrice *float64 `json:"estimatedPrice"`
	Quantity       int64    `json:"quantity"`
	ProductURL     string   `json:"productUrl"`
	DesiredPrice   *float64 `json:"desiredPrice"`
}

type cartItemResponse struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	EstimatedPrice *float64 `json:"estimatedPrice,omitempty"`
	Quantity       int64    `json:"quantity"`
	Suggestion     string   `json:"suggestion,omitempty"`
	ProductURL     string   `json:"productUrl,omitempty"`
	DesiredPrice   *float64 `json:"desiredPrice,omitempty"`
	CurrentPrice   *float64 `json:"currentPrice,omitempty"`
	Status         string   `json:"priceCheckStatus,omitempty"`
	LastChecked    *int64   `json:"lastChecked,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

func toCartItemResponse(item core.CartItem) cartItemResponse {
	resp := cartItemResponse{
		ID:             item.ID,
		Name:           item.Name,
		EstimatedPrice: item.EstimatedPrice,
		Quantity:       item.Quantity,
		Suggestion:     item.Suggestion,
		ProductURL:     item.ProductURL,
		DesiredPrice:   item.DesiredPrice,
		CurrentPrice:   item.CurrentPrice,
		Status:         string(item.Status),
		LastChecked:    item.LastChecked,
	}
	if !item.CreatedAt.IsZero() {
		resp.CreatedAt = item.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (s *Server) handleListCart(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListCartItems(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]cartItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toCartItemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.store.GetCartItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartItemResponse(item))
}

func (s *Server) handleCreateCartItem(w http.ResponseWriter, r *http.Request) {
	var req createCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Quantity == 0 {
		req.Quantity = 1
	}

	productURL, err := validatedProductURL(req.ProductURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := core.CartItem{
		Name:           sanitizeInput(req.Name),
		EstimatedPrice: req.EstimatedPrice,
		Quantity:       req.Quantity,
		ProductURL:     productURL,
		DesiredPrice:   req.DesiredPrice,
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateCartItem(r.Context(), item)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	created, err := s.store.GetCartItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Cart item created",
		"id", id, "tracking", created.Status == core.StatusTracking)
	writeJSON(w, http.StatusCreated, toCartItemResponse(created))
}

func (s *Server) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteCartItem(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateTrackingRequest struct {
	ProductURL   string   `json:"productUrl"`
	DesiredPrice *float64 `json:"desiredPrice"`
}

// handleUpdateTracking replaces an item's tracking fields. The stored current
// price and last-checked timestamp are reset so the next sweep starts fresh.
func (s *Server) handleUpdateTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateTrackingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	productURL, err := validatedProductURL(req.ProductURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DesiredPrice != nil && *req.DesiredPrice <= 0 {
		writeError(w, http.StatusBadRequest, "desired price must be positive")
		return
	}

	if err := s.store.UpdateCartItemTracking(r.Context(), id, productURL, req.DesiredPrice); err != nil {
		writeStoreError(w, r, err)
		return
	}

	updated, err := s.store.GetCartItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartItemResponse(updated))
}

type checkPriceResponse struct {
	Success      bool     `json:"success"`
	Status       string   `json:"status"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"`
}

// handleCheckPrice runs a one-off price check for the item and reports the
// final persisted status.
func (s *Server) handleCheckPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.store.GetCartItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if strings.TrimSpace(item.ProductURL) == "" {
		writeError(w, http.StatusBadRequest, "item has no product URL to check")
		return
	}

	outcome, err := s.checker.CheckItem(r.Context(), item)
	if err != nil {
		slog.ErrorContext(r.Context(), "Manual price check failed", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "price check failed")
		return
	}

	writeJSON(w, http.StatusOK, checkPriceResponse{
		Success:      outcome.Success,
		Status:       string(outcome.Status),
		CurrentPrice: outcome.Price,
	})
}

type suggestionResponse struct {
	Suggestion string `json:"suggestion"`
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		writeError(w, http.StatusServiceUnavailable, "suggestions are not configured")
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestion, err := s.suggester.SuggestForItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionResponse{Suggestion: suggestion})
}

// validatedProductURL trims the URL and, when non-empty, requires an absolute
// http(s) URL.
func validatedProductURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("invalid product URL %q", raw)
	}
	return raw, nil
}
