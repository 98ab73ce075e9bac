package suggest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cartwatch/internal/core"
	"cartwatch/internal/storage"
)

type fakeStore struct {
	item      core.CartItem
	itemErr   error
	saved     string
	savedID   int64
	saveCalls int
}

func (s *fakeStore) GetCartItem(context.Context, int64) (core.CartItem, error) {
	if s.itemErr != nil {
		return core.CartItem{}, s.itemErr
	}
	return s.item, nil
}

func (s *fakeStore) UpdateCartItemSuggestion(_ context.Context, id int64, suggestion string) error {
	s.saveCalls++
	s.savedID = id
	s.saved = suggestion
	return nil
}

const completionBody = `{
	"id": "chatcmpl-test",
	"object": "chat.completion",
	"choices": [
		{
			"index": 0,
			"message": {
				"role": "assistant",
				"content": "Check Amazon's daily deals for electronics and compare with Flipkart sale prices."
			},
			"finish_reason": "stop"
		}
	]
}`

func TestSuggestForItem(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	store := &fakeStore{item: core.CartItem{ID: 7, Name: "Mechanical Keyboard"}}
	svc := NewService("test-key", srv.URL, "gpt-4o-mini", store)

	got, err := svc.SuggestForItem(context.Background(), 7)
	if err != nil {
		t.Fatalf("SuggestForItem() error = %v", err)
	}
	want := "Check Amazon's daily deals for electronics and compare with Flipkart sale prices."
	if got != want {
		t.Errorf("suggestion = %q, want %q", got, want)
	}
	if store.saved != want || store.savedID != 7 {
		t.Errorf("persisted (%d, %q), want (7, %q)", store.savedID, store.saved, want)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("request path = %q, want /chat/completions", gotPath)
	}
}

func TestSuggestForItemFallsBackOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "bad request"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := &fakeStore{item: core.CartItem{ID: 3, Name: "Running Shoes"}}
	svc := NewService("test-key", srv.URL, "gpt-4o-mini", store)

	got, err := svc.SuggestForItem(context.Background(), 3)
	if err != nil {
		t.Fatalf("SuggestForItem() error = %v", err)
	}
	if got != FallbackSuggestion {
		t.Errorf("suggestion = %q, want fallback", got)
	}
	if store.saveCalls != 1 || store.saved != FallbackSuggestion {
		t.Error("fallback suggestion was not persisted")
	}
}

func TestSuggestForItemMissingItem(t *testing.T) {
	store := &fakeStore{itemErr: storage.ErrNotFound}
	svc := NewService("test-key", "", "gpt-4o-mini", store)

	if _, err := svc.SuggestForItem(context.Background(), 99); err == nil {
		t.Fatal("expected error for missing item")
	}
	if store.saveCalls != 0 {
		t.Error("suggestion must not be written for a missing item")
	}
}
