// internal/service/payments.go
package service

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/idempotency"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/util"
)

// Transfer moves money between wallets.
func (s *walletService) Transfer(ctx context.Context, req TransferRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypeTransfer,
		fmt.Sprint(req.FromWalletID), fmt.Sprint(req.ToWalletID), req.Amount.String(), req.Currency)

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypeTransfer, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if req.FromWalletID == req.ToWalletID {
				return nil, fmt.Errorf("transfer: wallet %d: %w", req.FromWalletID, util.ErrSameWalletTransfer)
			}
			if _, err := s.ownedWallet(ctx, req.Actor, req.FromWalletID); err != nil {
				return nil, fmt.Errorf("transfer: %w", err)
			}
			return s.debit(ctx, req.Actor, ledger.CommitRequest{
				Type:             domain.TransactionTypeTransfer,
				SenderWalletID:   &req.FromWalletID,
				ReceiverWalletID: &req.ToWalletID,
				Amount:           req.Amount,
				Currency:         req.Currency,
				ActorID:          req.Actor.ID,
				IdempotencyKey:   &req.IdempotencyKey,
				Fingerprint:      fp,
				Description:      req.Description,
			})
		})
}

// Payment pays a merchant immediately.
func (s *walletService) Payment(ctx context.Context, req PaymentRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypePayment,
		fmt.Sprint(req.FromWalletID), fmt.Sprint(req.MerchantWalletID), req.Amount.String(), req.Currency)

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypePayment, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if req.FromWalletID == req.MerchantWalletID {
				return nil, fmt.Errorf("payment: wallet %d: %w", req.FromWalletID, util.ErrSameWalletTransfer)
			}
			if _, err := s.ownedWallet(ctx, req.Actor, req.FromWalletID); err != nil {
				return nil, fmt.Errorf("payment: %w", err)
			}
			if err := s.requireMerchantWallet(ctx, req.MerchantWalletID); err != nil {
				return nil, fmt.Errorf("payment: %w", err)
			}
			return s.debit(ctx, req.Actor, ledger.CommitRequest{
				Type:             domain.TransactionTypePayment,
				SenderWalletID:   &req.FromWalletID,
				ReceiverWalletID: &req.MerchantWalletID,
				Amount:           req.Amount,
				Currency:         req.Currency,
				ActorID:          req.Actor.ID,
				IdempotencyKey:   &req.IdempotencyKey,
				Fingerprint:      fp,
				Description:      req.Description,
			})
		})
}

// RequestPayment records a PENDING payment from the payer to the acting
// merchant. Balances move only when the payer approves.
func (s *walletService) RequestPayment(ctx context.Context, req PaymentRequestRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("request payment: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypePayment, "request",
		fmt.Sprint(req.PayerWalletID), req.Amount.String(), req.Currency)

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypePayment, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if req.Actor.Role != domain.RoleMerchant {
				return nil, fmt.Errorf("request payment: actor %d is not a merchant: %w", req.Actor.ID, util.ErrForbidden)
			}
			if !domain.IsRounded(req.Amount, req.Currency) {
				return nil, fmt.Errorf("request payment: amount %s exceeds %s precision: %w", req.Amount, req.Currency, util.ErrInvalidInput)
			}
			q := s.txm.Executor()
			merchantWallet, err := s.walletRepo.GetWalletByUserIDAndCurrency(ctx, q, req.Actor.ID, req.Currency)
			if err != nil {
				return nil, fmt.Errorf("request payment: merchant wallet: %w", walletNotFound(err))
			}
			payer, err := s.walletRepo.GetWalletByID(ctx, q, req.PayerWalletID)
			if err != nil {
				return nil, fmt.Errorf("request payment: payer wallet %d: %w", req.PayerWalletID, walletNotFound(err))
			}
			if payer.ID == merchantWallet.ID {
				return nil, fmt.Errorf("request payment: wallet %d: %w", payer.ID, util.ErrSameWalletTransfer)
			}
			if payer.Currency != req.Currency {
				return nil, fmt.Errorf("request payment: payer wallet holds %s: %w", payer.Currency, util.ErrCurrencyMismatch)
			}

			entry := domain.NewTransaction(&payer.ID, &merchantWallet.ID, req.Amount, req.Currency, domain.TransactionTypePayment, req.Description)
			entry.ActorID = req.Actor.ID
			if err := s.transactionRepo.CreateTransaction(ctx, q, entry); err != nil {
				return nil, fmt.Errorf("request payment: %w", err)
			}
			return entry, nil
		})
}

// ApprovePayment settles a pending payment from the payer's wallet.
func (s *walletService) ApprovePayment(ctx context.Context, req PaymentDecisionRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("approve payment: %w", err)
	}
	pending, err := s.pendingPayment(ctx, req.EntryID)
	if err != nil {
		return nil, fmt.Errorf("approve payment: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypePayment, "approve", fmt.Sprint(req.EntryID))

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypePayment, pending.Amount, pending.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if _, err := s.ownedWallet(ctx, req.Actor, *pending.FromWalletID); err != nil {
				return nil, fmt.Errorf("approve payment: %w", err)
			}
			if pending.Status != domain.TransactionStatusPending {
				return nil, fmt.Errorf("approve payment: entry %d is %s: %w", pending.ID, pending.Status, util.ErrInvalidStateTransition)
			}
			entry, err := s.debit(ctx, req.Actor, ledger.CommitRequest{
				Type:             domain.TransactionTypePayment,
				SenderWalletID:   pending.FromWalletID,
				ReceiverWalletID: pending.ToWalletID,
				Amount:           pending.Amount,
				Currency:         pending.Currency,
				ActorID:          req.Actor.ID,
				PendingEntryID:   &pending.ID,
			})
			if err != nil && util.IsBusinessRejection(err) {
				s.closeRequest(context.WithoutCancel(ctx), pending.ID, err)
			}
			return entry, err
		})
}

// closeRequest fails a payment request whose approval was rejected and tells
// the merchant. The ledger may already have failed it while committing.
func (s *walletService) closeRequest(ctx context.Context, entryID int64, cause error) {
	failed, err := s.ledger.FailPending(ctx, entryID, cause.Error())
	if errors.Is(err, util.ErrInvalidStateTransition) {
		failed, err = s.transactionRepo.GetTransactionByID(ctx, s.txm.Executor(), entryID)
		if err == nil && failed.Status != domain.TransactionStatusFailed {
			return
		}
	}
	if err != nil {
		s.logger.Error("failed to close payment request", "entry_id", entryID, "cause", cause, "error", err)
		return
	}
	s.settled(failed)
}

// DeclinePayment fails a pending payment. The payer may decline it and the
// requesting merchant may withdraw it.
func (s *walletService) DeclinePayment(ctx context.Context, req PaymentDecisionRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("decline payment: %w", err)
	}
	pending, err := s.pendingPayment(ctx, req.EntryID)
	if err != nil {
		return nil, fmt.Errorf("decline payment: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypePayment, "decline", fmt.Sprint(req.EntryID))

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypePayment, pending.Amount, pending.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if pending.ActorID != req.Actor.ID {
				if _, err := s.ownedWallet(ctx, req.Actor, *pending.FromWalletID); err != nil {
					return nil, fmt.Errorf("decline payment: %w", err)
				}
			}
			declined, err := s.ledger.FailPending(ctx, pending.ID, fmt.Sprintf("declined by user %d", req.Actor.ID))
			if err != nil {
				return nil, fmt.Errorf("decline payment: entry %d: %w", pending.ID, err)
			}
			return declined, nil
		})
}

// CashIn credits a customer from the acting agent's float wallet.
func (s *walletService) CashIn(ctx context.Context, req CashInRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("cash-in: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypeDeposit, "cash-in",
		fmt.Sprint(req.CustomerWalletID), req.Amount.String(), req.Currency)

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypeDeposit, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if req.Actor.Role != domain.RoleAgent {
				return nil, fmt.Errorf("cash-in: actor %d is not an agent: %w", req.Actor.ID, util.ErrForbidden)
			}
			float, err := s.agentFloat(ctx, req.Actor.ID, req.Currency)
			if err != nil {
				return nil, fmt.Errorf("cash-in: %w", err)
			}
			outcome, err := s.charges.Resolve(ctx, domain.TransactionTypeDeposit, req.Actor.Role, req.Amount, req.Currency)
			if err != nil {
				return nil, fmt.Errorf("cash-in: %w", err)
			}
			agentID := req.Actor.ID
			return s.ledger.Commit(ctx, ledger.CommitRequest{
				Type:             domain.TransactionTypeDeposit,
				SenderWalletID:   &float.ID,
				ReceiverWalletID: &req.CustomerWalletID,
				Amount:           req.Amount,
				Currency:         req.Currency,
				Charge:           outcome,
				ActorID:          req.Actor.ID,
				AgentID:          &agentID,
				IdempotencyKey:   &req.IdempotencyKey,
				Fingerprint:      fp,
			})
		})
}

// CashOut moves a customer's money to the agent paying out cash.
func (s *walletService) CashOut(ctx context.Context, req CashOutRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("cash-out: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypeWithdrawal, "cash-out",
		fmt.Sprint(req.FromWalletID), fmt.Sprint(req.AgentID), req.Amount.String(), req.Currency)

	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypeWithdrawal, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if _, err := s.ownedWallet(ctx, req.Actor, req.FromWalletID); err != nil {
				return nil, fmt.Errorf("cash-out: %w", err)
			}
			float, err := s.agentFloat(ctx, req.AgentID, req.Currency)
			if err != nil {
				return nil, fmt.Errorf("cash-out: %w", err)
			}
			agentID := req.AgentID
			return s.debit(ctx, req.Actor, ledger.CommitRequest{
				Type:             domain.TransactionTypeWithdrawal,
				SenderWalletID:   &req.FromWalletID,
				ReceiverWalletID: &float.ID,
				Amount:           req.Amount,
				Currency:         req.Currency,
				ActorID:          req.Actor.ID,
				AgentID:          &agentID,
				IdempotencyKey:   &req.IdempotencyKey,
				Fingerprint:      fp,
			})
		})
}

// agentFloat returns the PRIMARY wallet of an approved agent.
func (s *walletService) agentFloat(ctx context.Context, agentID int64, currency string) (*domain.Wallet, error) {
	q := s.txm.Executor()
	profile, err := s.agentRepo.GetAgentProfile(ctx, q, agentID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, fmt.Errorf("agent %d: %w", agentID, util.ErrAgentNotFound)
		}
		return nil, fmt.Errorf("agent %d: %w", agentID, err)
	}
	if !profile.IsApproved {
		return nil, fmt.Errorf("agent %d is not approved: %w", agentID, util.ErrForbidden)
	}
	float, err := s.walletRepo.GetWalletByUserIDAndCurrency(ctx, q, agentID, currency)
	if err != nil {
		return nil, fmt.Errorf("agent %d float in %s: %w", agentID, currency, walletNotFound(err))
	}
	return float, nil
}

func (s *walletService) requireMerchantWallet(ctx context.Context, walletID int64) error {
	q := s.txm.Executor()
	wallet, err := s.walletRepo.GetWalletByID(ctx, q, walletID)
	if err != nil {
		return fmt.Errorf("merchant wallet %d: %w", walletID, walletNotFound(err))
	}
	owner, err := s.userRepo.GetUserByID(ctx, q, wallet.UserID)
	if err != nil {
		return fmt.Errorf("merchant wallet %d owner: %w", walletID, err)
	}
	if owner.Role != domain.RoleMerchant {
		return fmt.Errorf("wallet %d does not belong to a merchant: %w", walletID, util.ErrInvalidInput)
	}
	return nil
}

func (s *walletService) pendingPayment(ctx context.Context, entryID int64) (*domain.Transaction, error) {
	entry, err := s.transactionRepo.GetTransactionByID(ctx, s.txm.Executor(), entryID)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", entryID, err)
	}
	if entry.Type != domain.TransactionTypePayment || entry.FromWalletID == nil || entry.ToWalletID == nil {
		return nil, fmt.Errorf("entry %d is not a payment: %w", entryID, util.ErrInvalidInput)
	}
	return entry, nil
}
