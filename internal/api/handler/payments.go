// internal/api/handler/payments.go
package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/service"
)

// PaymentBody is the request body for an immediate merchant payment.
type PaymentBody struct {
	FromWalletID     int64           `json:"from_wallet_id"`
	MerchantWalletID int64           `json:"merchant_wallet_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Description      *string         `json:"description"`
}

// Payment pays a merchant.
// POST /payments
func (h *WalletHandler) Payment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	var body PaymentBody
	if err := decode(r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.service.Payment(r.Context(), service.PaymentRequest{
		Actor:            actor,
		IdempotencyKey:   r.Header.Get(HeaderIdempotencyKey),
		FromWalletID:     body.FromWalletID,
		MerchantWalletID: body.MerchantWalletID,
		Amount:           body.Amount,
		Currency:         body.Currency,
		Description:      body.Description,
	})
	h.respondWithResult(w, result, err)
}

// PaymentRequestBody is a merchant asking a payer for money.
type PaymentRequestBody struct {
	PayerWalletID int64           `json:"payer_wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   *string         `json:"description"`
}

// RequestPayment records a pending payment awaiting the payer's approval.
// POST /payments/requests
func (h *WalletHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	var body PaymentRequestBody
	if err := decode(r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.service.RequestPayment(r.Context(), service.PaymentRequestRequest{
		Actor:          actor,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		PayerWalletID:  body.PayerWalletID,
		Amount:         body.Amount,
		Currency:       body.Currency,
		Description:    body.Description,
	})
	h.respondWithResult(w, result, err)
}

func (h *WalletHandler) decision(r *http.Request) (service.PaymentDecisionRequest, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return service.PaymentDecisionRequest{}, err
	}
	entryID, err := pathID(r, "entryID")
	if err != nil {
		return service.PaymentDecisionRequest{}, err
	}
	return service.PaymentDecisionRequest{
		Actor:          actor,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		EntryID:        entryID,
	}, nil
}

// ApprovePayment settles a pending payment.
// POST /payments/{entryID}/approve
func (h *WalletHandler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	req, err := h.decision(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	result, err := h.service.ApprovePayment(r.Context(), req)
	h.respondWithResult(w, result, err)
}

// DeclinePayment fails a pending payment.
// POST /payments/{entryID}/decline
func (h *WalletHandler) DeclinePayment(w http.ResponseWriter, r *http.Request) {
	req, err := h.decision(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	result, err := h.service.DeclinePayment(r.Context(), req)
	h.respondWithResult(w, result, err)
}

// CashInBody is an agent crediting a customer against cash received.
type CashInBody struct {
	CustomerWalletID int64           `json:"customer_wallet_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

// CashIn handles agent cash-in.
// POST /cash-in
func (h *WalletHandler) CashIn(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	var body CashInBody
	if err := decode(r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.service.CashIn(r.Context(), service.CashInRequest{
		Actor:            actor,
		IdempotencyKey:   r.Header.Get(HeaderIdempotencyKey),
		CustomerWalletID: body.CustomerWalletID,
		Amount:           body.Amount,
		Currency:         body.Currency,
	})
	h.respondWithResult(w, result, err)
}

// CashOutBody is a customer withdrawing cash at an agent.
type CashOutBody struct {
	FromWalletID int64           `json:"from_wallet_id"`
	AgentID      int64           `json:"agent_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// CashOut handles customer cash-out.
// POST /cash-out
func (h *WalletHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	var body CashOutBody
	if err := decode(r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.service.CashOut(r.Context(), service.CashOutRequest{
		Actor:          actor,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		FromWalletID:   body.FromWalletID,
		AgentID:        body.AgentID,
		Amount:         body.Amount,
		Currency:       body.Currency,
	})
	h.respondWithResult(w, result, err)
}
