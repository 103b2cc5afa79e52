package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository methods that participate in the ledger transaction take an
// explicit pgx.Tx so the coordinator controls the transaction boundary.
// Plain reads run against the pool.

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// PortfolioRepository defines the interface for portfolio account operations
type PortfolioRepository interface {
	// Create inserts a new account. Returns ErrAccountExists when the user
	// already has one (unique owner key).
	Create(ctx context.Context, portfolio *Portfolio) error

	// GetByUserID retrieves the account for a user, ErrAccountNotFound if none.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Portfolio, error)

	// GetByUserIDTx reads the account inside the ledger transaction.
	GetByUserIDTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*Portfolio, error)

	// UpdateCash writes the post-trade cash balance inside the ledger transaction.
	UpdateCash(ctx context.Context, tx pgx.Tx, userID uuid.UUID, cash decimal.Decimal) error

	// UpdateValuation writes the derived mark-to-market fields.
	UpdateValuation(ctx context.Context, portfolio *Portfolio) error

	// GetAll retrieves every account, oldest first.
	GetAll(ctx context.Context) ([]*Portfolio, error)
}

// PositionRepository defines the interface for position operations
type PositionRepository interface {
	// Save creates a new position inside the ledger transaction.
	Save(ctx context.Context, tx pgx.Tx, position *Position) error

	// GetOpenByAsset reads the open lot for (user, asset) inside the ledger
	// transaction, ErrPositionNotFound if none.
	GetOpenByAsset(ctx context.Context, tx pgx.Tx, userID uuid.UUID, asset string) (*Position, error)

	// Update rewrites a position's mutable fields inside the ledger transaction.
	Update(ctx context.Context, tx pgx.Tx, position *Position) error

	// GetByUserID retrieves positions for a user, newest first.
	GetByUserID(ctx context.Context, userID uuid.UUID, openOnly bool) ([]*Position, error)

	// GetAllOpen retrieves all open positions across users.
	GetAllOpen(ctx context.Context) ([]*Position, error)

	// UpdateMark refreshes the cached mark price on an open position.
	UpdateMark(ctx context.Context, id uuid.UUID, mark decimal.Decimal) error
}

// TradeRepository defines the interface for the append-only trade log
type TradeRepository interface {
	// Insert appends a trade record inside the ledger transaction.
	Insert(ctx context.Context, tx pgx.Tx, trade *Trade) error

	// GetByUserID retrieves the full trade history, oldest first.
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Trade, error)

	// GetRealizedPnLSince sums realized PnL on trades at or after the cutoff.
	GetRealizedPnLSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)

	// GetWinRate returns the share of realizing trades with positive PnL,
	// as a percentage. Zero when nothing has been realized yet.
	GetWinRate(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}
