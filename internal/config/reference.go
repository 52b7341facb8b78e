// internal/config/reference.go
package config

import (
	"fmt"
	"strconv"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
)

// DefaultReference is the built-in reference data. Tier limits apply to every
// driver; the seed users and rules are loaded only by the memory driver.
var DefaultReference = []byte(`
tiers:
  "0": { daily: "0", monthly: "0" }
  "1": { daily: "500.00", monthly: "2000.00" }
  "2": { daily: "5000.00", monthly: "20000.00" }
  "3": { daily: "20000.00", monthly: "100000.00" }

charge_rules:
  - name: "customer transfer"
    transaction_type: "TRANSFER"
    user_role: "CUSTOMER"
    charge_type: "PERCENTAGE"
    value: "1.0"
    bearer: "SENDER"
    min_charge: "0.10"
    max_charge: "5.00"
  - name: "customer cash-out"
    transaction_type: "WITHDRAWAL"
    user_role: "CUSTOMER"
    charge_type: "PERCENTAGE"
    value: "2.0"
    bearer: "SENDER"
    min_charge: "0.10"
    max_charge: "5.00"
  - name: "merchant payment"
    transaction_type: "PAYMENT"
    user_role: "CUSTOMER"
    charge_type: "PERCENTAGE"
    value: "1.5"
    bearer: "RECEIVER"

users:
  - username: "system"
    role: "SYSTEM"
    verification_level: 3
    wallet_kind: "FEE"
    balance: "10000.00"
  - username: "alice"
    role: "CUSTOMER"
    verification_level: 1
    timezone: "Africa/Kampala"
    phone: "+256700000001"
    email: "alice@example.com"
    balance: "1000.00"
  - username: "bob"
    role: "CUSTOMER"
    verification_level: 2
    balance: "250.00"
  - username: "agent-one"
    role: "AGENT"
    verification_level: 3
    balance: "50000.00"
    agent:
      code: "AG-0001"
      business_name: "Corner Shop"
      commission_rate: "1.5"
      tier: "gold"
  - username: "coffee-house"
    role: "MERCHANT"
    verification_level: 3
    balance: "0"
    merchant:
      business_name: "Coffee House"
      webhook_url: ""
      webhook_secret: "change-me"
`)

// Reference is validated reference data.
type Reference struct {
	Tiers       map[int]domain.TierLimits
	ChargeRules []domain.ChargeRule
	Users       []SeedUser
}

// SeedUser is a user provisioned by the memory driver at startup.
type SeedUser struct {
	User       domain.User
	WalletKind domain.WalletKind
	Balance    decimal.Decimal
	Agent      *domain.AgentProfile
	Merchant   *domain.MerchantProfile
}

type rawReference struct {
	Tiers       map[string]rawTier `koanf:"tiers"`
	ChargeRules []rawRule          `koanf:"charge_rules"`
	Users       []rawUser          `koanf:"users"`
}

type rawTier struct {
	Daily   string `koanf:"daily"`
	Monthly string `koanf:"monthly"`
}

type rawRule struct {
	Name            string `koanf:"name"`
	TransactionType string `koanf:"transaction_type"`
	UserRole        string `koanf:"user_role"`
	ChargeType      string `koanf:"charge_type"`
	Value           string `koanf:"value"`
	Bearer          string `koanf:"bearer"`
	MinCharge       string `koanf:"min_charge"`
	MaxCharge       string `koanf:"max_charge"`
}

type rawUser struct {
	Username          string       `koanf:"username"`
	Role              string       `koanf:"role"`
	VerificationLevel int          `koanf:"verification_level"`
	Timezone          string       `koanf:"timezone"`
	Phone             string       `koanf:"phone"`
	Email             string       `koanf:"email"`
	WalletKind        string       `koanf:"wallet_kind"`
	Balance           string       `koanf:"balance"`
	Agent             *rawAgent    `koanf:"agent"`
	Merchant          *rawMerchant `koanf:"merchant"`
}

type rawAgent struct {
	Code           string `koanf:"code"`
	BusinessName   string `koanf:"business_name"`
	CommissionRate string `koanf:"commission_rate"`
	Tier           string `koanf:"tier"`
}

type rawMerchant struct {
	BusinessName  string `koanf:"business_name"`
	WebhookURL    string `koanf:"webhook_url"`
	WebhookSecret string `koanf:"webhook_secret"`
}

// LoadReference loads DefaultReference and merges path over it when set.
func LoadReference(path string) (*Reference, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(DefaultReference), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default reference data: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load reference data from %s: %w", path, err)
		}
	}

	var raw rawReference
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("failed to decode reference data: %w", err)
	}
	return raw.build()
}

func (raw rawReference) build() (*Reference, error) {
	ref := &Reference{Tiers: make(map[int]domain.TierLimits, len(raw.Tiers))}
	for name, t := range raw.Tiers {
		tier, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("tier %q: not a number", name)
		}
		daily, err := money(t.Daily)
		if err != nil {
			return nil, fmt.Errorf("tier %d daily: %w", tier, err)
		}
		monthly, err := money(t.Monthly)
		if err != nil {
			return nil, fmt.Errorf("tier %d monthly: %w", tier, err)
		}
		ref.Tiers[tier] = domain.TierLimits{Daily: daily, Monthly: monthly}
	}

	for _, r := range raw.ChargeRules {
		rule, err := r.build()
		if err != nil {
			return nil, fmt.Errorf("charge rule %q: %w", r.Name, err)
		}
		ref.ChargeRules = append(ref.ChargeRules, rule)
	}

	for _, u := range raw.Users {
		seed, err := u.build()
		if err != nil {
			return nil, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		ref.Users = append(ref.Users, seed)
	}
	return ref, nil
}

func (r rawRule) build() (domain.ChargeRule, error) {
	value, err := money(r.Value)
	if err != nil {
		return domain.ChargeRule{}, err
	}
	rule := domain.ChargeRule{
		Name:            r.Name,
		TransactionType: domain.TransactionType(r.TransactionType),
		UserRole:        domain.UserRole(r.UserRole),
		ChargeType:      domain.ChargeType(r.ChargeType),
		Value:           value,
		Bearer:          domain.ChargeBearer(r.Bearer),
		IsActive:        true,
	}
	if rule.MinCharge, err = money(r.MinCharge); err != nil {
		return domain.ChargeRule{}, err
	}
	if r.MaxCharge != "" {
		v, err := money(r.MaxCharge)
		if err != nil {
			return domain.ChargeRule{}, err
		}
		rule.MaxCharge = &v
	}
	return rule, nil
}

func (u rawUser) build() (SeedUser, error) {
	user := domain.NewUser(u.Username)
	user.Role = domain.UserRole(u.Role)
	if !user.Role.Valid() {
		return SeedUser{}, fmt.Errorf("unknown role %q", u.Role)
	}
	user.VerificationLevel = u.VerificationLevel
	if u.Timezone != "" {
		user.Timezone = u.Timezone
	}
	if u.Phone != "" {
		phone := u.Phone
		user.PhoneNumber = &phone
	}
	if u.Email != "" {
		email := u.Email
		user.Email = &email
	}

	seed := SeedUser{User: *user, WalletKind: domain.WalletKindPrimary}
	if u.WalletKind != "" {
		seed.WalletKind = domain.WalletKind(u.WalletKind)
	}
	balance, err := money(u.Balance)
	if err != nil {
		return SeedUser{}, err
	}
	seed.Balance = balance

	if u.Agent != nil {
		rate, err := money(u.Agent.CommissionRate)
		if err != nil {
			return SeedUser{}, fmt.Errorf("commission rate: %w", err)
		}
		seed.Agent = &domain.AgentProfile{
			AgentCode:      u.Agent.Code,
			BusinessName:   u.Agent.BusinessName,
			CommissionRate: rate,
			Tier:           u.Agent.Tier,
			IsApproved:     true,
		}
	}
	if u.Merchant != nil {
		m := &domain.MerchantProfile{BusinessName: u.Merchant.BusinessName, WebhookSecret: u.Merchant.WebhookSecret}
		if u.Merchant.WebhookURL != "" {
			url := u.Merchant.WebhookURL
			m.WebhookURL = &url
		}
		seed.Merchant = m
	}
	return seed, nil
}

func money(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
