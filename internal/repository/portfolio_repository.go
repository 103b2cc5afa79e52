package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// PgSQLSTATE for unique constraint violations.
const uniqueViolationCode = "23505"

// PortfolioRepositoryImpl implements the PortfolioRepository interface
type PortfolioRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewPortfolioRepository creates a new PortfolioRepository
func NewPortfolioRepository(db *pgxpool.Pool) domain.PortfolioRepository {
	return &PortfolioRepositoryImpl{db: db}
}

const portfolioColumns = `
	id, user_id, cash, total_equity, stocks, unrealized_pnl,
	daily_pnl, daily_pnl_percent, win_rate, open_positions,
	created_at, updated_at
`

// Create inserts a new account. The unique index on user_id makes a
// concurrent duplicate insert surface as ErrAccountExists, which the
// initializer resolves idempotently.
func (r *PortfolioRepositoryImpl) Create(ctx context.Context, portfolio *domain.Portfolio) error {
	query := `
		INSERT INTO portfolios (
			id, user_id, cash, total_equity, stocks, unrealized_pnl,
			daily_pnl, daily_pnl_percent, win_rate, open_positions,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.Exec(ctx, query,
		portfolio.ID,
		portfolio.UserID,
		portfolio.Cash,
		portfolio.TotalEquity,
		portfolio.Stocks,
		portfolio.UnrealizedPnL,
		portfolio.DailyPnL,
		portfolio.DailyPnLPercent,
		portfolio.WinRate,
		portfolio.OpenPositions,
		portfolio.CreatedAt,
		portfolio.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	return nil
}

// GetByUserID retrieves the account for a user
func (r *PortfolioRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	return scanPortfolio(r.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = $1`, userID))
}

// GetByUserIDTx reads the account inside the ledger transaction.
func (r *PortfolioRepositoryImpl) GetByUserIDTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Portfolio, error) {
	return scanPortfolio(tx.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = $1`, userID))
}

func scanPortfolio(row pgx.Row) (*domain.Portfolio, error) {
	portfolio := &domain.Portfolio{}
	err := row.Scan(
		&portfolio.ID,
		&portfolio.UserID,
		&portfolio.Cash,
		&portfolio.TotalEquity,
		&portfolio.Stocks,
		&portfolio.UnrealizedPnL,
		&portfolio.DailyPnL,
		&portfolio.DailyPnLPercent,
		&portfolio.WinRate,
		&portfolio.OpenPositions,
		&portfolio.CreatedAt,
		&portfolio.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return portfolio, nil
}

// UpdateCash writes the post-trade cash balance inside the ledger transaction.
func (r *PortfolioRepositoryImpl) UpdateCash(ctx context.Context, tx pgx.Tx, userID uuid.UUID, cash decimal.Decimal) error {
	query := `
		UPDATE portfolios
		SET cash = $1, updated_at = $2
		WHERE user_id = $3
	`

	_, err := tx.Exec(ctx, query, cash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update portfolio cash: %w", err)
	}

	return nil
}

// UpdateValuation writes the derived mark-to-market fields.
func (r *PortfolioRepositoryImpl) UpdateValuation(ctx context.Context, portfolio *domain.Portfolio) error {
	query := `
		UPDATE portfolios
		SET total_equity = $1,
		    stocks = $2,
		    unrealized_pnl = $3,
		    daily_pnl = $4,
		    daily_pnl_percent = $5,
		    win_rate = $6,
		    open_positions = $7,
		    updated_at = $8
		WHERE user_id = $9
	`

	_, err := r.db.Exec(ctx, query,
		portfolio.TotalEquity,
		portfolio.Stocks,
		portfolio.UnrealizedPnL,
		portfolio.DailyPnL,
		portfolio.DailyPnLPercent,
		portfolio.WinRate,
		portfolio.OpenPositions,
		time.Now(),
		portfolio.UserID,
	)

	if err != nil {
		return fmt.Errorf("failed to update portfolio valuation: %w", err)
	}

	return nil
}

// GetAll retrieves every account, oldest first
func (r *PortfolioRepositoryImpl) GetAll(ctx context.Context) ([]*domain.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*domain.Portfolio
	for rows.Next() {
		portfolio := &domain.Portfolio{}
		err := rows.Scan(
			&portfolio.ID,
			&portfolio.UserID,
			&portfolio.Cash,
			&portfolio.TotalEquity,
			&portfolio.Stocks,
			&portfolio.UnrealizedPnL,
			&portfolio.DailyPnL,
			&portfolio.DailyPnLPercent,
			&portfolio.WinRate,
			&portfolio.OpenPositions,
			&portfolio.CreatedAt,
			&portfolio.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, portfolio)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}
