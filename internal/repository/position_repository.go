package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// PositionRepositoryImpl implements the PositionRepository interface
type PositionRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db *pgxpool.Pool) domain.PositionRepository {
	return &PositionRepositoryImpl{db: db}
}

const positionColumns = `
	id, user_id, asset, size, avg_entry_price, current_price,
	realized_pnl, strategy, status, opened_at, closed_at,
	created_at, updated_at
`

// Save creates a new position inside the ledger transaction
func (r *PositionRepositoryImpl) Save(ctx context.Context, tx pgx.Tx, position *domain.Position) error {
	query := `
		INSERT INTO positions (
			id, user_id, asset, size, avg_entry_price, current_price,
			realized_pnl, strategy, status, opened_at, closed_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := tx.Exec(ctx, query,
		position.ID,
		position.UserID,
		position.Asset,
		position.Size,
		position.AvgEntryPrice,
		position.CurrentPrice,
		position.RealizedPnL,
		position.Strategy,
		position.Status,
		position.OpenedAt,
		position.ClosedAt,
		position.CreatedAt,
		position.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}

	return nil
}

// GetOpenByAsset reads the open lot for (user, asset) inside the ledger
// transaction. The partial unique index on open positions guarantees at
// most one row.
func (r *PositionRepositoryImpl) GetOpenByAsset(ctx context.Context, tx pgx.Tx, userID uuid.UUID, asset string) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1 AND asset = $2 AND closed_at IS NULL
	`

	position := &domain.Position{}
	err := tx.QueryRow(ctx, query, userID, asset).Scan(
		&position.ID,
		&position.UserID,
		&position.Asset,
		&position.Size,
		&position.AvgEntryPrice,
		&position.CurrentPrice,
		&position.RealizedPnL,
		&position.Strategy,
		&position.Status,
		&position.OpenedAt,
		&position.ClosedAt,
		&position.CreatedAt,
		&position.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get open position: %w", err)
	}

	return position, nil
}

// Update rewrites a position's mutable fields inside the ledger transaction
func (r *PositionRepositoryImpl) Update(ctx context.Context, tx pgx.Tx, position *domain.Position) error {
	query := `
		UPDATE positions
		SET size = $1,
		    avg_entry_price = $2,
		    current_price = $3,
		    realized_pnl = $4,
		    status = $5,
		    closed_at = $6,
		    updated_at = $7
		WHERE id = $8
	`

	_, err := tx.Exec(ctx, query,
		position.Size,
		position.AvgEntryPrice,
		position.CurrentPrice,
		position.RealizedPnL,
		position.Status,
		position.ClosedAt,
		position.UpdatedAt,
		position.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	return nil
}

// GetByUserID retrieves positions for a user, newest first
func (r *PositionRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID, openOnly bool) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1
	`
	if openOnly {
		query += ` AND closed_at IS NULL`
	}
	query += ` ORDER BY opened_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions by user ID: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetAllOpen retrieves all open positions across users
func (r *PositionRepositoryImpl) GetAllOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE closed_at IS NULL
		ORDER BY opened_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// UpdateMark refreshes the cached mark price on an open position
func (r *PositionRepositoryImpl) UpdateMark(ctx context.Context, id uuid.UUID, mark decimal.Decimal) error {
	query := `
		UPDATE positions
		SET current_price = $1, updated_at = $2
		WHERE id = $3 AND closed_at IS NULL
	`

	_, err := r.db.Exec(ctx, query, mark, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update position mark price: %w", err)
	}

	return nil
}

func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		position := &domain.Position{}
		err := rows.Scan(
			&position.ID,
			&position.UserID,
			&position.Asset,
			&position.Size,
			&position.AvgEntryPrice,
			&position.CurrentPrice,
			&position.RealizedPnL,
			&position.Strategy,
			&position.Status,
			&position.OpenedAt,
			&position.ClosedAt,
			&position.CreatedAt,
			&position.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
