// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wallet-ledger/internal/api/handler"
)

// Handlers groups everything the router mounts. Nil metrics handlers are skipped.
type Handlers struct {
	Wallet        *handler.WalletHandler
	Notifications *handler.NotificationHandler
	Metrics       http.Handler
	KafkaMetrics  http.Handler
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID) // Add a request ID to the context
	r.Use(middleware.RealIP)    // Use the real IP address
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer) // Recover from panics and return 500

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}
	if h.KafkaMetrics != nil {
		r.Method(http.MethodGet, "/metrics/kafka", h.KafkaMetrics)
	}
	// The websocket outlives the request timeout below.
	if h.Notifications != nil {
		r.Get("/ws", h.Notifications.Connect)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(handler.DefaultTimeout))

		// Wallet API routes
		r.Route("/wallets", func(r chi.Router) {
			r.Post("/{walletID}/deposit", h.Wallet.Deposit)
			r.Post("/{walletID}/withdraw", h.Wallet.Withdraw)
			r.Get("/{walletID}/balance", h.Wallet.GetWalletBalance)
			r.Get("/{walletID}/transactions", h.Wallet.GetTransactionHistory)
		})

		// Transfer is a separate top-level endpoint as it involves two wallets
		r.Post("/transfers", h.Wallet.Transfer)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.Wallet.Payment)
			r.Post("/requests", h.Wallet.RequestPayment)
			r.Post("/{entryID}/approve", h.Wallet.ApprovePayment)
			r.Post("/{entryID}/decline", h.Wallet.DeclinePayment)
		})

		r.Post("/cash-in", h.Wallet.CashIn)
		r.Post("/cash-out", h.Wallet.CashOut)
		r.Get("/charges/quote", h.Wallet.QuoteCharge)
	})

	return r
}

// requestLogger logs each request through slog with the chi request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
