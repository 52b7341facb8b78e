// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util" // For custom errors
)

// DefaultTimeout bounds every request. Money operations carry their own
// processing timeout inside the service.
const DefaultTimeout = 30 * time.Second

// Identity and idempotency headers.
const (
	HeaderActorID        = "X-Actor-ID"
	HeaderActorRole      = "X-Actor-Role"
	HeaderActorTier      = "X-Actor-Tier"
	HeaderActorTimezone  = "X-Actor-Timezone"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// WalletHandler handles HTTP requests related to wallet operations.
type WalletHandler struct {
	service service.WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		service: svc,
		logger:  logger,
	}
}

// Helper function to send JSON responses.
func (h *WalletHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch util.ErrorKind(err) {
	case util.KindInvalidInput, util.KindSameWalletTransfer, util.KindCurrencyMismatch, util.KindWalletDisabled:
		return http.StatusBadRequest
	case util.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case util.KindForbidden, util.KindLimitExceeded:
		return http.StatusForbidden
	case util.KindNotFound:
		return http.StatusNotFound
	case util.KindDuplicateRequest, util.KindConflictingIdempotencyKey, util.KindInvalidStateTransition:
		return http.StatusConflict
	case util.KindInvalidChargeConfiguration:
		return http.StatusUnprocessableEntity
	case util.KindConcurrencyConflict:
		return http.StatusServiceUnavailable
	}
	if util.IsError(err, util.ErrDuplicateEntry) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Helper function to send error responses.
func (h *WalletHandler) respondWithError(w http.ResponseWriter, err error) {
	h.respondWithResult(w, nil, err)
}

// respondWithResult writes a money operation outcome. A recorded rejection
// carries its result so the caller sees what a replay will return.
func (h *WalletHandler) respondWithResult(w http.ResponseWriter, result *domain.TransactionResult, err error) {
	if err == nil {
		status := http.StatusOK
		if result != nil && result.Status == domain.TransactionStatusPending {
			status = http.StatusAccepted
		}
		h.respondWithJSON(w, status, result)
		return
	}

	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled service error", "error", err)
		message = "Internal server error"
	}
	h.respondWithJSON(w, status, types.ErrorResponse{Error: message, Kind: util.ErrorKind(err), Result: result})
}

// actorFromRequest reads the identity asserted by the upstream identity service.
func actorFromRequest(r *http.Request) (service.Actor, error) {
	id, err := strconv.ParseInt(r.Header.Get(HeaderActorID), 10, 64)
	if err != nil || id <= 0 {
		return service.Actor{}, fmt.Errorf("missing or malformed %s header: %w", HeaderActorID, util.ErrInvalidInput)
	}
	role := domain.UserRole(strings.ToUpper(r.Header.Get(HeaderActorRole)))
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return service.Actor{}, fmt.Errorf("unknown role %q: %w", role, util.ErrInvalidInput)
	}
	tier := 0
	if raw := r.Header.Get(HeaderActorTier); raw != "" {
		if tier, err = strconv.Atoi(raw); err != nil {
			return service.Actor{}, fmt.Errorf("malformed %s header: %w", HeaderActorTier, util.ErrInvalidInput)
		}
	}
	return service.Actor{ID: id, Role: role, Tier: tier, Timezone: r.Header.Get(HeaderActorTimezone)}, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed %s: %w", name, util.ErrInvalidInput)
	}
	return id, nil
}

// decode reads the JSON body into dst.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", util.ErrInvalidInput)
	}
	return nil
}

// FundingBody represents the request body for deposit and withdraw.
type FundingBody struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description *string         `json:"description"`
}

func (h *WalletHandler) fundingRequest(r *http.Request) (service.FundingRequest, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return service.FundingRequest{}, err
	}
	walletID, err := pathID(r, "walletID")
	if err != nil {
		return service.FundingRequest{}, err
	}
	var body FundingBody
	if err := decode(r, &body); err != nil {
		return service.FundingRequest{}, err
	}
	return service.FundingRequest{
		Actor:          actor,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		WalletID:       walletID,
		Amount:         body.Amount,
		Currency:       body.Currency,
		Description:    body.Description,
	}, nil
}

// Deposit handles the deposit money request.
// POST /wallets/{walletID}/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, err := h.fundingRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	result, err := h.service.Deposit(r.Context(), req)
	h.respondWithResult(w, result, err)
}

// Withdraw handles the withdraw money request.
// POST /wallets/{walletID}/withdraw
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, err := h.fundingRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	result, err := h.service.Withdraw(r.Context(), req)
	h.respondWithResult(w, result, err)
}

// TransferBody represents the request body for transfer.
type TransferBody struct {
	FromWalletID int64           `json:"from_wallet_id"`
	ToWalletID   int64           `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  *string         `json:"description"`
}

// Transfer handles the transfer money request.
// POST /transfers
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	var body TransferBody
	if err := decode(r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.service.Transfer(r.Context(), service.TransferRequest{
		Actor:          actor,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		FromWalletID:   body.FromWalletID,
		ToWalletID:     body.ToWalletID,
		Amount:         body.Amount,
		Currency:       body.Currency,
		Description:    body.Description,
	})
	h.respondWithResult(w, result, err)
}

// GetWalletBalance handles the get wallet balance request.
// GET /wallets/{walletID}/balance
func (h *WalletHandler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	wallet, err := h.service.GetBalance(r.Context(), walletID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.BalanceResponse{
		WalletID: wallet.ID,
		Balance:  wallet.Balance.StringFixed(domain.MinorUnit(wallet.Currency)),
		Currency: wallet.Currency,
		Kind:     string(wallet.Kind),
	})
}

// GetTransactionHistory handles the get transaction history request.
// GET /wallets/{walletID}/transactions
func (h *WalletHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	// Parse query parameters for pagination
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10 // Default limit
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0 // Default offset
	}

	transactions, total, err := h.service.GetTransactionHistory(r.Context(), walletID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// QuoteCharge prices a prospective transaction.
// GET /charges/quote?type=TRANSFER&role=CUSTOMER&amount=100&currency=USD
func (h *WalletHandler) QuoteCharge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		h.respondWithError(w, fmt.Errorf("malformed amount: %w", util.ErrInvalidInput))
		return
	}
	role := domain.UserRole(strings.ToUpper(q.Get("role")))
	if role == "" {
		role = domain.RoleCustomer
	}

	quote, err := h.service.QuoteCharge(r.Context(), service.QuoteRequest{
		Type:     domain.TransactionType(strings.ToUpper(q.Get("type"))),
		Role:     role,
		Amount:   amount,
		Currency: q.Get("currency"),
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, quote)
}
