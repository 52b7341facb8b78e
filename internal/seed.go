// internal/seed.go
package app

import (
	"context"
	"fmt"

	"wallet-ledger/internal/config"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository/memory"
)

// Seed provisions the reference users, wallets, profiles and charge rules
// into an empty memory store. Agents also get a COMMISSION wallet.
func Seed(ctx context.Context, store *memory.Store, ref *config.Reference, currency string) error {
	if ref == nil {
		return nil
	}
	for i := range ref.ChargeRules {
		rule := ref.ChargeRules[i]
		if err := store.CreateChargeRule(ctx, store, &rule); err != nil {
			return fmt.Errorf("charge rule %q: %w", rule.Name, err)
		}
	}

	for _, seed := range ref.Users {
		user := seed.User
		if err := store.CreateUser(ctx, store, &user); err != nil {
			return fmt.Errorf("user %q: %w", user.Username, err)
		}
		wallet := domain.NewWallet(user.ID, currency)
		wallet.Kind = seed.WalletKind
		wallet.Balance = domain.RoundMoney(seed.Balance, currency)
		if err := store.CreateWallet(ctx, store, wallet); err != nil {
			return fmt.Errorf("wallet for %q: %w", user.Username, err)
		}

		if seed.Agent != nil {
			commissionWallet := domain.NewWallet(user.ID, currency)
			commissionWallet.Kind = domain.WalletKindCommission
			if err := store.CreateWallet(ctx, store, commissionWallet); err != nil {
				return fmt.Errorf("commission wallet for %q: %w", user.Username, err)
			}
			profile := *seed.Agent
			profile.UserID = user.ID
			profile.CommissionWalletID = commissionWallet.ID
			if err := store.CreateAgentProfile(ctx, store, &profile); err != nil {
				return fmt.Errorf("agent profile for %q: %w", user.Username, err)
			}
		}
		if seed.Merchant != nil {
			profile := *seed.Merchant
			profile.UserID = user.ID
			if err := store.CreateMerchantProfile(ctx, store, &profile); err != nil {
				return fmt.Errorf("merchant profile for %q: %w", user.Username, err)
			}
		}
	}
	return nil
}
