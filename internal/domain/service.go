package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeRequest is one inbound trade to execute against a user's ledger.
type TradeRequest struct {
	Asset  string
	Action TradeAction
	Size   decimal.Decimal
	Price  decimal.Decimal
}

// TradeReceipt is the committed result of an executed trade: the appended
// record plus the post-trade position and account snapshots.
type TradeReceipt struct {
	Trade    *Trade
	Position *Position
	Account  *Portfolio
}

// Ledger defines the operations the HTTP layer consumes: atomic trade
// execution, idempotent account creation, and the read-only query surface.
type Ledger interface {
	// InitializePortfolio creates the account with the starting cash
	// balance. Idempotent: when the account already exists it is returned
	// unchanged with existed=true.
	InitializePortfolio(ctx context.Context, userID uuid.UUID) (portfolio *Portfolio, existed bool, err error)

	// ExecuteTrade validates and applies one trade as a single atomic unit.
	ExecuteTrade(ctx context.Context, userID uuid.UUID, req TradeRequest) (*TradeReceipt, error)

	// GetAccount returns the current account snapshot.
	GetAccount(ctx context.Context, userID uuid.UUID) (*Portfolio, error)

	// ListPositions returns the user's positions, newest first.
	ListPositions(ctx context.Context, userID uuid.UUID, openOnly bool) ([]*Position, error)

	// ListTrades returns the user's full trade history, oldest first.
	ListTrades(ctx context.Context, userID uuid.UUID) ([]*Trade, error)
}
