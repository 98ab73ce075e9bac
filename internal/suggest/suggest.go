// Package suggest generates shopping advice for cart items through an
// OpenAI-compatible chat completions API.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"cartwatch/internal/core"
)

const systemPrompt = "You are a helpful shopping assistant. For the given item, provide a concise suggestion on how to find the best price, focusing on checking Amazon and Flipkart. If possible, mention any common deal patterns or specific sections to check on these sites for the item type. Keep the suggestion to 1-2 sentences."

// FallbackSuggestion is persisted when the model cannot be reached or
// returns nothing usable.
const FallbackSuggestion = "Error fetching suggestion. Please check Amazon/Flipkart manually."

// SuggestionStore persists the generated text against the cart item.
type SuggestionStore interface {
	GetCartItem(ctx context.Context, id int64) (core.CartItem, error)
	UpdateCartItemSuggestion(ctx context.Context, id int64, suggestion string) error
}

type Service struct {
	client *openai.Client
	model  string
	store  SuggestionStore
}

// NewService builds the suggestion service. baseURL may be empty to use the
// provider default.
func NewService(apiKey, baseURL, model string, store SuggestionStore) *Service {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Service{
		client: &client,
		model:  model,
		store:  store,
	}
}

// SuggestForItem asks the model where to find the best price for the item
// and persists the answer. Any model failure degrades to the fallback text
// rather than an error; only a missing item or a failed write is fatal.
func (s *Service) SuggestForItem(ctx context.Context, itemID int64) (string, error) {
	item, err := s.store.GetCartItem(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("failed to load cart item %d: %w", itemID, err)
	}

	suggestion := s.generate(ctx, item.Name)

	if err := s.store.UpdateCartItemSuggestion(ctx, itemID, suggestion); err != nil {
		return "", fmt.Errorf("failed to store suggestion for item %d: %w", itemID, err)
	}
	return suggestion, nil
}

func (s *Service) generate(ctx context.Context, itemName string) string {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	completion, err := s.client.Chat.Completions.New(
		ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt(itemName)),
			},
			Model:     s.model,
			MaxTokens: openai.Int(70),
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "Suggestion request failed", "item", itemName, "error", err)
		return FallbackSuggestion
	}

	if len(completion.Choices) == 0 {
		slog.WarnContext(ctx, "Suggestion request returned no choices", "item", itemName)
		return FallbackSuggestion
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return FallbackSuggestion
	}
	return text
}

func userPrompt(itemName string) string {
	return fmt.Sprintf("Where can I find the best price for %q, specifically on Amazon or Flipkart?", itemName)
}
