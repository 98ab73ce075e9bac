// Package http exposes the JSON API: expenses, the shopping cart with price
// tracking, and user settings.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cartwatch/internal/core"
	"cartwatch/internal/tracker"
)

// Store is the persistence surface the API handlers need.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListUnpurchasedExpenses(ctx context.Context) ([]core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	SetExpensePurchased(ctx context.Context, id int64, purchased bool) error
	MoveExpenseToCart(ctx context.Context, id int64) (core.CartItem, error)

	CreateCartItem(ctx context.Context, item core.CartItem) (int64, error)
	GetCartItem(ctx context.Context, id int64) (core.CartItem, error)
	ListCartItems(ctx context.Context) ([]core.CartItem, error)
	DeleteCartItem(ctx context.Context, id int64) error
	UpdateCartItemTracking(ctx context.Context, id int64, productURL string, desiredPrice *float64) error

	GetSettings(ctx context.Context) (core.UserSettings, error)
	UpsertBudget(ctx context.Context, budget *core.Money) error
}

// PriceChecker runs a one-off price check for a single item.
type PriceChecker interface {
	CheckItem(ctx context.Context, item core.CartItem) (tracker.Outcome, error)
}

// Suggester produces and persists a shopping suggestion for an item.
type Suggester interface {
	SuggestForItem(ctx context.Context, itemID int64) (string, error)
}

type Server struct {
	http.Server

	store        Store
	checker      PriceChecker
	suggester    Suggester
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes, returning a ready-to-run http.Server.
// suggester may be nil when no model credentials are configured.
func NewServer(addr string, store Store, checker PriceChecker, suggester Suggester) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       store,
		checker:     checker,
		suggester:   suggester,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.withMiddleware(s.handleDeleteExpense))
	mux.HandleFunc("PATCH /expenses/{id}/purchased", s.withMiddleware(s.handleSetPurchased))
	mux.HandleFunc("POST /expenses/{id}/move-to-cart", s.withMiddleware(s.handleMoveToCart))

	mux.HandleFunc("GET /cart", s.withMiddleware(s.handleListCart))
	mux.HandleFunc("POST /cart", s.withMiddleware(s.handleCreateCartItem))
	mux.HandleFunc("GET /cart/{id}", s.withMiddleware(s.handleGetCartItem))
	mux.HandleFunc("DELETE /cart/{id}", s.withMiddleware(s.handleDeleteCartItem))
	mux.HandleFunc("PATCH /cart/{id}/tracking", s.withMiddleware(s.handleUpdateTracking))
	mux.HandleFunc("POST /cart/{id}/check", s.withMiddleware(s.handleCheckPrice))
	mux.HandleFunc("POST /cart/{id}/suggestion", s.withMiddleware(s.handleSuggestion))

	mux.HandleFunc("GET /settings/budget", s.withMiddleware(s.handleGetSettings))
	mux.HandleFunc("PUT /settings/budget", s.withMiddleware(s.handleSetBudget))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutating requests only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
