package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

const (
	// Serializable transactions abort with SQLSTATE 40001 under contention.
	serializationFailureCode = "40001"

	// Bounded retry for serialization conflicts; callers never see a
	// conflict that a retry resolved.
	maxTradeAttempts = 3
	retryBackoff     = 50 * time.Millisecond

	// Persistence operations carry a short timeout; on expiry the
	// transaction rolls back and the trade is treated as not-happened.
	ledgerTimeout = 5 * time.Second
)

// txBeginner is the slice of pgxpool.Pool the coordinator needs.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// LedgerService keeps a user's cash, positions, and trade history mutually
// consistent. Every trade runs the three-way update (trade insert, cash
// update, position upsert) as one serializable transaction, so concurrent
// trades on the same account or lot cannot lose updates.
type LedgerService struct {
	db            txBeginner
	portfolioRepo domain.PortfolioRepository
	positionRepo  domain.PositionRepository
	tradeRepo     domain.TradeRepository
	startingCash  decimal.Decimal
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	db txBeginner,
	portfolioRepo domain.PortfolioRepository,
	positionRepo domain.PositionRepository,
	tradeRepo domain.TradeRepository,
	startingCash decimal.Decimal,
) *LedgerService {
	return &LedgerService{
		db:            db,
		portfolioRepo: portfolioRepo,
		positionRepo:  positionRepo,
		tradeRepo:     tradeRepo,
		startingCash:  startingCash,
	}
}

// InitializePortfolio creates the user's account with the starting cash
// balance. Idempotent: a second call returns the existing account unchanged,
// existed=true. A concurrent duplicate create loses on the unique owner key
// and resolves to the winner's row.
func (s *LedgerService) InitializePortfolio(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()

	portfolio, err := s.portfolioRepo.GetByUserID(ctx, userID)
	if err == nil {
		return portfolio, true, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	fresh := domain.NewPortfolio(userID, s.startingCash)
	err = s.portfolioRepo.Create(ctx, fresh)
	if err == nil {
		log.Printf("[OK] Portfolio initialized for user %s with %s cash", userID, s.startingCash)
		return fresh, false, nil
	}
	if errors.Is(err, domain.ErrAccountExists) {
		// Lost a concurrent initialize; the winner's row is the account.
		existing, getErr := s.portfolioRepo.GetByUserID(ctx, userID)
		if getErr != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrPersistence, getErr)
		}
		return existing, true, nil
	}

	return nil, false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

// ExecuteTrade validates and applies one trade as a single atomic unit.
// Serialization conflicts are retried up to maxTradeAttempts with backoff;
// when retries exhaust, the trade surfaces as ErrPersistence with nothing
// committed.
func (s *LedgerService) ExecuteTrade(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeReceipt, error) {
	req.Asset = strings.ToUpper(strings.TrimSpace(req.Asset))
	if err := validateTradeRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= maxTradeAttempts; attempt++ {
		receipt, err := s.executeOnce(ctx, userID, req)
		if err == nil {
			return receipt, nil
		}

		if isSerializationConflict(err) {
			lastErr = err
			log.Printf("[WARN] Serialization conflict executing %s %s for user %s (attempt %d/%d)",
				req.Action, req.Asset, userID, attempt, maxTradeAttempts)
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, ctx.Err())
			}
			continue
		}

		switch {
		case errors.Is(err, domain.ErrInsufficientFunds),
			errors.Is(err, domain.ErrAccountNotFound),
			errors.Is(err, domain.ErrValidation):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
	}

	return nil, fmt.Errorf("%w: retries exhausted: %v", domain.ErrPersistence, lastErr)
}

// executeOnce runs one attempt of the three-way update in a serializable
// transaction. Any error leaves the ledger untouched.
func (s *LedgerService) executeOnce(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeReceipt, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin trade transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := s.portfolioRepo.GetByUserIDTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if !account.CanAfford(req.Action, req.Size, req.Price) {
		return nil, domain.ErrInsufficientFunds
	}

	now := time.Now()
	trade := &domain.Trade{
		ID:        uuid.New(),
		UserID:    userID,
		Asset:     req.Asset,
		Action:    req.Action,
		Price:     req.Price,
		Size:      req.Size,
		Strategy:  domain.StrategyManual,
		Timestamp: now,
		CreatedAt: now,
	}

	position, err := s.positionRepo.GetOpenByAsset(ctx, tx, userID, req.Asset)
	switch {
	case errors.Is(err, domain.ErrPositionNotFound):
		position = domain.NewPosition(userID, req.Asset, domain.SignedSize(req.Action, req.Size), req.Price, now)
		if err := s.positionRepo.Save(ctx, tx, position); err != nil {
			return nil, err
		}

	case err != nil:
		return nil, err

	default:
		outcome := position.ApplyFill(req.Action, req.Size, req.Price, now)
		trade.PnL = outcome.RealizedPnL
		if err := s.positionRepo.Update(ctx, tx, position); err != nil {
			return nil, err
		}
		if outcome.Closed && !outcome.Remainder.IsZero() {
			// Direction flip: the remainder opens a fresh lot at the
			// fill price.
			position = domain.NewPosition(userID, req.Asset, outcome.Remainder, req.Price, now)
			if err := s.positionRepo.Save(ctx, tx, position); err != nil {
				return nil, err
			}
		}
	}

	if err := s.tradeRepo.Insert(ctx, tx, trade); err != nil {
		return nil, err
	}

	newCash := account.CashAfter(req.Action, req.Size, req.Price)
	if err := s.portfolioRepo.UpdateCash(ctx, tx, userID, newCash); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit trade transaction: %w", err)
	}

	account.Cash = newCash
	account.UpdatedAt = now
	return &domain.TradeReceipt{Trade: trade, Position: position, Account: account}, nil
}

// GetAccount returns the current account snapshot
func (s *LedgerService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	portfolio, err := s.portfolioRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return portfolio, nil
}

// ListPositions returns the user's positions, newest first
func (s *LedgerService) ListPositions(ctx context.Context, userID uuid.UUID, openOnly bool) ([]*domain.Position, error) {
	positions, err := s.positionRepo.GetByUserID(ctx, userID, openOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return positions, nil
}

// ListTrades returns the user's full trade history, oldest first
func (s *LedgerService) ListTrades(ctx context.Context, userID uuid.UUID) ([]*domain.Trade, error) {
	trades, err := s.tradeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return trades, nil
}

func validateTradeRequest(req domain.TradeRequest) error {
	if req.Asset == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if _, ok := domain.ParseTradeAction(string(req.Action)); !ok {
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, req.Action)
	}
	if !req.Size.IsPositive() {
		return fmt.Errorf("%w: size must be positive", domain.ErrValidation)
	}
	if !req.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	return nil
}

func isSerializationConflict(err error) bool {
	if errors.Is(err, domain.ErrSerialization) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode
}
