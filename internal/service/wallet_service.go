// internal/service/wallet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/idempotency"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/internal/worker"
	"wallet-ledger/pkg/validator"
)

// WalletService defines the interface for wallet-related business logic.
type WalletService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.TransactionResult, error)
	Payment(ctx context.Context, req PaymentRequest) (*domain.TransactionResult, error)
	RequestPayment(ctx context.Context, req PaymentRequestRequest) (*domain.TransactionResult, error)
	ApprovePayment(ctx context.Context, req PaymentDecisionRequest) (*domain.TransactionResult, error)
	DeclinePayment(ctx context.Context, req PaymentDecisionRequest) (*domain.TransactionResult, error)
	CashIn(ctx context.Context, req CashInRequest) (*domain.TransactionResult, error)
	CashOut(ctx context.Context, req CashOutRequest) (*domain.TransactionResult, error)
	Deposit(ctx context.Context, req FundingRequest) (*domain.TransactionResult, error)
	Withdraw(ctx context.Context, req FundingRequest) (*domain.TransactionResult, error)
	QuoteCharge(ctx context.Context, req QuoteRequest) (*Quote, error)
	GetBalance(ctx context.Context, walletID int64) (*domain.Wallet, error)
	GetTransactionHistory(ctx context.Context, walletID int64, limit, offset int) ([]domain.Transaction, int64, error)
	CreateUserAndWallet(ctx context.Context, username, currency string) (*domain.User, *domain.Wallet, error)
}

// Committer applies balance movements atomically.
type Committer interface {
	Commit(ctx context.Context, req ledger.CommitRequest) (*domain.Transaction, error)
	FailPending(ctx context.Context, entryID int64, reason string) (*domain.Transaction, error)
}

// ChargeResolver prices a transaction.
type ChargeResolver interface {
	Resolve(ctx context.Context, txType domain.TransactionType, role domain.UserRole, amount decimal.Decimal, currency string) (domain.ChargeOutcome, error)
}

// LimitChecker enforces velocity caps.
type LimitChecker interface {
	Check(ctx context.Context, userID int64, tier int, amount decimal.Decimal, now time.Time, loc *time.Location) error
}

// Notifier fans a settled entry out to its parties.
type Notifier interface {
	Dispatch(ctx context.Context, entry *domain.Transaction) error
}

// CommissionRouter credits agents after cash-in and cash-out.
type CommissionRouter interface {
	Route(ctx context.Context, entry *domain.Transaction) error
}

// JobSubmitter queues post-commit work without blocking.
type JobSubmitter interface {
	Submit(job worker.Job) error
}

// Config tunes the service.
type Config struct {
	ProcessingTimeout time.Duration
	DefaultTimezone   string
}

// Dependencies groups what the service is built from.
type Dependencies struct {
	TxManager    repository.TxManager
	Users        repository.UserRepository
	Wallets      repository.WalletRepository
	Transactions repository.TransactionRepository
	Agents       repository.AgentRepository
	Merchants    repository.MerchantRepository

	Guard      *idempotency.Guard
	Limits     LimitChecker
	Charges    ChargeResolver
	Ledger     Committer
	Notifier   Notifier
	Commission CommissionRouter
	Jobs       JobSubmitter
	Validator  *validator.Validator
	Logger     *slog.Logger
}

// walletService implements the WalletService interface.
type walletService struct {
	txm             repository.TxManager
	userRepo        repository.UserRepository
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	agentRepo       repository.AgentRepository
	merchantRepo    repository.MerchantRepository

	guard      *idempotency.Guard
	limits     LimitChecker
	charges    ChargeResolver
	ledger     Committer
	notifier   Notifier
	commission CommissionRouter
	jobs       JobSubmitter
	validate   *validator.Validator
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(deps Dependencies, cfg Config) WalletService {
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = 15 * time.Second
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &walletService{
		txm:             deps.TxManager,
		userRepo:        deps.Users,
		walletRepo:      deps.Wallets,
		transactionRepo: deps.Transactions,
		agentRepo:       deps.Agents,
		merchantRepo:    deps.Merchants,
		guard:           deps.Guard,
		limits:          deps.Limits,
		charges:         deps.Charges,
		ledger:          deps.Ledger,
		notifier:        deps.Notifier,
		commission:      deps.Commission,
		jobs:            deps.Jobs,
		validate:        deps.Validator,
		cfg:             cfg,
		logger:          deps.Logger,
		now:             time.Now,
	}
}

// Deposit credits a wallet from outside the ledger (top-up).
func (s *walletService) Deposit(ctx context.Context, req FundingRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypeDeposit, fmt.Sprint(req.WalletID), req.Amount.String(), req.Currency)
	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypeDeposit, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			wallet, err := s.walletRepo.GetWalletByID(ctx, s.txm.Executor(), req.WalletID)
			if err != nil {
				return nil, fmt.Errorf("deposit: failed to get wallet %d: %w", req.WalletID, walletNotFound(err))
			}
			if wallet.UserID != req.Actor.ID && req.Actor.Role != domain.RoleSystem {
				return nil, fmt.Errorf("deposit: actor %d may not fund wallet %d: %w", req.Actor.ID, req.WalletID, util.ErrForbidden)
			}
			return s.ledger.Commit(ctx, ledger.CommitRequest{
				Type:             domain.TransactionTypeDeposit,
				ReceiverWalletID: &req.WalletID,
				Amount:           req.Amount,
				Currency:         req.Currency,
				Charge:           domain.ZeroCharge(),
				ActorID:          req.Actor.ID,
				IdempotencyKey:   &req.IdempotencyKey,
				Fingerprint:      fp,
				Description:      req.Description,
			})
		})
}

// Withdraw debits a wallet to outside the ledger (payout).
func (s *walletService) Withdraw(ctx context.Context, req FundingRequest) (*domain.TransactionResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	fp := idempotency.Fingerprint(domain.TransactionTypeWithdrawal, fmt.Sprint(req.WalletID), req.Amount.String(), req.Currency)
	return s.execute(ctx, req.Actor, req.IdempotencyKey, fp, domain.TransactionTypeWithdrawal, req.Amount, req.Currency,
		func(ctx context.Context) (*domain.Transaction, error) {
			if _, err := s.ownedWallet(ctx, req.Actor, req.WalletID); err != nil {
				return nil, fmt.Errorf("withdraw: %w", err)
			}
			return s.debit(ctx, req.Actor, ledger.CommitRequest{
				Type:           domain.TransactionTypeWithdrawal,
				SenderWalletID: &req.WalletID,
				Amount:         req.Amount,
				Currency:       req.Currency,
				ActorID:        req.Actor.ID,
				IdempotencyKey: &req.IdempotencyKey,
				Fingerprint:    fp,
				Description:    req.Description,
			})
		})
}

// QuoteCharge prices a prospective transaction without side effects.
func (s *walletService) QuoteCharge(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if !req.Type.Valid() || !req.Role.Valid() {
		return nil, fmt.Errorf("quote: unknown type %q or role %q: %w", req.Type, req.Role, util.ErrInvalidInput)
	}
	if !domain.IsRounded(req.Amount, req.Currency) {
		return nil, fmt.Errorf("quote: amount %s exceeds %s precision: %w", req.Amount, req.Currency, util.ErrInvalidInput)
	}
	outcome, err := s.charges.Resolve(ctx, req.Type, req.Role, req.Amount, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if outcome.Bearer == domain.ChargeBearerReceiver && outcome.Amount.GreaterThan(req.Amount) {
		return nil, fmt.Errorf("quote: charge %s exceeds amount %s: %w", outcome.Amount, req.Amount, util.ErrInvalidChargeConfiguration)
	}
	netDebit, netCredit := ledger.NetAmounts(req.Amount, outcome)
	return &Quote{
		Type:      req.Type,
		Amount:    req.Amount,
		Charge:    outcome.Amount,
		Bearer:    outcome.Bearer,
		NetDebit:  netDebit,
		NetCredit: netCredit,
		Currency:  req.Currency,
		RuleID:    outcome.RuleID,
	}, nil
}

// GetBalance retrieves a wallet with its current balance.
func (s *walletService) GetBalance(ctx context.Context, walletID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByID(ctx, s.txm.Executor(), walletID)
	if err != nil {
		return nil, fmt.Errorf("get balance: failed to get wallet %d: %w", walletID, walletNotFound(err))
	}
	return wallet, nil
}

// GetTransactionHistory retrieves a paginated list of transactions for a specific wallet.
func (s *walletService) GetTransactionHistory(ctx context.Context, walletID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	q := s.txm.Executor()
	if _, err := s.walletRepo.GetWalletByID(ctx, q, walletID); err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, 0, util.ErrWalletNotFound
		}
		return nil, 0, fmt.Errorf("failed to check wallet existence: %w", err)
	}

	transactions, totalCount, err := s.transactionRepo.GetTransactionsByWalletID(ctx, q, walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	return transactions, totalCount, nil
}

// CreateUserAndWallet creates a customer with a PRIMARY wallet in currency.
func (s *walletService) CreateUserAndWallet(ctx context.Context, username, currency string) (*domain.User, *domain.Wallet, error) {
	if username == "" || len(currency) != 3 {
		return nil, nil, fmt.Errorf("create user and wallet: username and 3-letter currency required: %w", util.ErrInvalidInput)
	}

	var user *domain.User
	var wallet *domain.Wallet
	err := s.txm.RunInTx(ctx, func(q repository.DBExecutor) error {
		_, err := s.userRepo.GetUserByUsername(ctx, q, username)
		if err == nil {
			return fmt.Errorf("create user and wallet: user with username '%s' already exists: %w", username, util.ErrDuplicateEntry)
		}
		if !errors.Is(err, util.ErrNotFound) {
			return fmt.Errorf("create user and wallet: failed to check existing user: %w", err)
		}

		user = domain.NewUser(username)
		if s.cfg.DefaultTimezone != "" {
			user.Timezone = s.cfg.DefaultTimezone
		}
		if err := s.userRepo.CreateUser(ctx, q, user); err != nil {
			return fmt.Errorf("create user and wallet: failed to create user: %w", err)
		}

		wallet = domain.NewWallet(user.ID, currency)
		if err := s.walletRepo.CreateWallet(ctx, q, wallet); err != nil {
			return fmt.Errorf("create user and wallet: failed to create wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, wallet, nil
}

func walletNotFound(err error) error {
	if errors.Is(err, util.ErrNotFound) {
		return util.ErrWalletNotFound
	}
	return err
}
