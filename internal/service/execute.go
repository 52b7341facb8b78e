// internal/service/execute.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/commission"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/util"
	"wallet-ledger/internal/worker"
)

type runFunc func(ctx context.Context) (*domain.Transaction, error)

// execute runs one money operation under the caller's idempotency key.
// Business rejections become terminal results under the key; transient
// failures release it so a retry executes again.
func (s *walletService) execute(ctx context.Context, actor Actor, key, fingerprint string, txType domain.TransactionType,
	amount decimal.Decimal, currency string, run runFunc) (*domain.TransactionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessingTimeout)
	defer cancel()

	admission, err := s.guard.Admit(ctx, actor.ID, key, fingerprint)
	if err != nil {
		return nil, err
	}
	if !admission.Fresh {
		return admission.Prior, admission.Prior.Err()
	}

	// Recording the outcome must survive the caller's deadline.
	record := context.WithoutCancel(ctx)

	entry, err := run(ctx)
	if err != nil {
		if errors.Is(err, util.ErrDuplicateEntry) {
			return s.backstop(record, actor, key, fingerprint, err)
		}
		if util.IsBusinessRejection(err) {
			result := domain.RejectedResult(txType, amount, currency, err)
			s.complete(record, actor, key, fingerprint, result)
			return result, err
		}
		s.guard.Release(record, actor.ID, key)
		return nil, err
	}

	result := domain.ResultFromTransaction(entry)
	s.complete(record, actor, key, fingerprint, result)
	s.settled(entry)
	return result, nil
}

// backstop resolves a unique-key violation: the guard lost its record but the
// ledger already holds a COMPLETED entry for (actor, key).
func (s *walletService) backstop(ctx context.Context, actor Actor, key, fingerprint string, cause error) (*domain.TransactionResult, error) {
	prior, err := s.transactionRepo.GetCompletedByIdempotencyKey(ctx, s.txm.Executor(), actor.ID, key)
	if err != nil {
		s.guard.Release(ctx, actor.ID, key)
		return nil, fmt.Errorf("idempotency backstop for %q: %w", key, cause)
	}
	if prior.Fingerprint != "" && prior.Fingerprint != fingerprint {
		s.guard.Release(ctx, actor.ID, key)
		return nil, fmt.Errorf("idempotency key %q: %w", key, util.ErrConflictingIdempotencyKey)
	}
	result := domain.ResultFromTransaction(prior)
	s.complete(ctx, actor, key, fingerprint, result)
	return result, nil
}

func (s *walletService) complete(ctx context.Context, actor Actor, key, fingerprint string, result *domain.TransactionResult) {
	if err := s.guard.Complete(ctx, actor.ID, key, fingerprint, result); err != nil {
		// The ledger's unique (actor, key) constraint still prevents a double apply.
		s.logger.Error("failed to record idempotent result", "actor_id", actor.ID, "key", key, "error", err)
	}
}

// debit runs the velocity check and pricing, then commits.
func (s *walletService) debit(ctx context.Context, actor Actor, req ledger.CommitRequest) (*domain.Transaction, error) {
	loc := domain.LoadLocation(actor.Timezone)
	if actor.Timezone == "" {
		loc = domain.LoadLocation(s.cfg.DefaultTimezone)
	}
	if err := s.limits.Check(ctx, actor.ID, actor.Tier, req.Amount, s.now(), loc); err != nil {
		return nil, err
	}
	outcome, err := s.charges.Resolve(ctx, req.Type, actor.Role, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	req.Charge = outcome
	return s.ledger.Commit(ctx, req)
}

// ownedWallet loads walletID and checks the actor owns it.
func (s *walletService) ownedWallet(ctx context.Context, actor Actor, walletID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByID(ctx, s.txm.Executor(), walletID)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: %w", walletID, walletNotFound(err))
	}
	if wallet.UserID != actor.ID {
		return nil, fmt.Errorf("wallet %d is not owned by actor %d: %w", walletID, actor.ID, util.ErrForbidden)
	}
	return wallet, nil
}

// settled hands post-commit work to the worker pool. Nothing here can undo
// the entry; dropped jobs are recovered by the retrier and commission sweep.
// FAILED entries still reach the notifier, which decides who hears about them.
func (s *walletService) settled(entry *domain.Transaction) {
	if s.jobs == nil {
		return
	}
	e := *entry
	if s.commission != nil && commission.Eligible(&e) {
		s.submit(e.ID, worker.Job{Name: "commission", Run: func(ctx context.Context) error {
			return s.commission.Route(ctx, &e)
		}})
	}
	if s.notifier != nil {
		s.submit(e.ID, worker.Job{Name: "notify", Run: func(ctx context.Context) error {
			return s.notifier.Dispatch(ctx, &e)
		}})
	}
}

func (s *walletService) submit(entryID int64, job worker.Job) {
	if err := s.jobs.Submit(job); err != nil {
		s.logger.Warn("post-commit job not queued", "job", job.Name, "entry_id", entryID, "error", err)
	}
}
