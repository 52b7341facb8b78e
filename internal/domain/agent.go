// internal/domain/agent.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgentProfile holds the commission configuration of a cash agent.
type AgentProfile struct {
	UserID             int64           `db:"user_id" json:"user_id"`
	AgentCode          string          `db:"agent_code" json:"agent_code"`
	BusinessName       string          `db:"business_name" json:"business_name"`
	CommissionRate     decimal.Decimal `db:"commission_rate" json:"commission_rate"` // Percent, e.g. 1.50
	Tier               string          `db:"tier" json:"tier"`
	CommissionWalletID int64           `db:"commission_wallet_id" json:"commission_wallet_id"`
	IsApproved         bool            `db:"is_approved" json:"is_approved"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// MerchantProfile is the webhook configuration of a merchant.
type MerchantProfile struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	BusinessName  string    `db:"business_name" json:"business_name"`
	WebhookURL    *string   `db:"webhook_url" json:"webhook_url,omitempty"`
	WebhookSecret string    `db:"webhook_secret" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
