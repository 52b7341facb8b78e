// internal/api/types/response.go
package types

import "wallet-ledger/internal/domain"

// PaginatedResponse defines a generic structure for paginated API responses.
// T represents the type of data contained in the 'Data' slice.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}

// ErrorResponse is the body of every non-2xx response. Result is set when a
// money operation was rejected and the rejection was recorded under its key.
type ErrorResponse struct {
	Error  string                    `json:"error"`
	Kind   string                    `json:"kind"`
	Result *domain.TransactionResult `json:"result,omitempty"`
}

// BalanceResponse is the body of GET /wallets/{walletID}/balance.
type BalanceResponse struct {
	WalletID int64  `json:"wallet_id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Kind     string `json:"kind"`
}
