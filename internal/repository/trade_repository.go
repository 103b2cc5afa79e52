package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// TradeRepositoryImpl implements the TradeRepository interface
type TradeRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *pgxpool.Pool) domain.TradeRepository {
	return &TradeRepositoryImpl{db: db}
}

// Insert appends a trade record inside the ledger transaction. Trades are
// never updated or deleted.
func (r *TradeRepositoryImpl) Insert(ctx context.Context, tx pgx.Tx, trade *domain.Trade) error {
	query := `
		INSERT INTO trades (
			id, user_id, asset, action, price, size, pnl,
			strategy, executed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := tx.Exec(ctx, query,
		trade.ID,
		trade.UserID,
		trade.Asset,
		trade.Action,
		trade.Price,
		trade.Size,
		trade.PnL,
		trade.Strategy,
		trade.Timestamp,
		trade.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// GetByUserID retrieves the full trade history, oldest first
func (r *TradeRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Trade, error) {
	query := `
		SELECT id, user_id, asset, action, price, size, pnl,
		       strategy, executed_at, created_at
		FROM trades
		WHERE user_id = $1
		ORDER BY executed_at ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by user ID: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		trade := &domain.Trade{}
		err := rows.Scan(
			&trade.ID,
			&trade.UserID,
			&trade.Asset,
			&trade.Action,
			&trade.Price,
			&trade.Size,
			&trade.PnL,
			&trade.Strategy,
			&trade.Timestamp,
			&trade.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetRealizedPnLSince sums realized PnL on trades at or after the cutoff
func (r *TradeRepositoryImpl) GetRealizedPnLSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(pnl), 0)
		FROM trades
		WHERE user_id = $1
		AND executed_at >= $2
		AND pnl IS NOT NULL
	`

	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, userID, since).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum realized PnL: %w", err)
	}

	return total, nil
}

// GetWinRate returns the share of realizing trades with positive PnL, as a
// percentage
func (r *TradeRepositoryImpl) GetWinRate(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE pnl > 0), COUNT(*)
		FROM trades
		WHERE user_id = $1 AND pnl IS NOT NULL
	`

	var wins, total int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&wins, &total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute win rate: %w", err)
	}

	if total == 0 {
		return decimal.Zero, nil
	}

	return decimal.NewFromInt(wins).
		Div(decimal.NewFromInt(total)).
		Mul(decimal.NewFromInt(100)), nil
}
