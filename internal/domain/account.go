package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is the aggregate account state for one user: cash plus the
// derived valuation fields maintained by the mark-to-market job. Created
// once per user and never deleted.
type Portfolio struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Cash            decimal.Decimal `json:"cash"`
	TotalEquity     decimal.Decimal `json:"total_equity"`
	Stocks          decimal.Decimal `json:"stocks"` // market value of open positions
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
	DailyPnLPercent decimal.Decimal `json:"daily_pnl_percent"`
	WinRate         decimal.Decimal `json:"win_rate"`
	OpenPositions   int             `json:"open_positions"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewPortfolio creates a fresh account with the given starting cash and all
// derived fields zeroed.
func NewPortfolio(userID uuid.UUID, startingCash decimal.Decimal) *Portfolio {
	now := time.Now()
	return &Portfolio{
		ID:          uuid.New(),
		UserID:      userID,
		Cash:        startingCash,
		TotalEquity: startingCash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CashAfter returns the cash balance after applying a fill: buys consume
// cash, sells and shorts credit the proceeds.
func (p *Portfolio) CashAfter(action TradeAction, size, price decimal.Decimal) decimal.Decimal {
	cost := size.Mul(price)
	if action == ActionBuy {
		return p.Cash.Sub(cost)
	}
	return p.Cash.Add(cost)
}

// CanAfford reports whether a buy of the given notional value is covered by
// available cash. Only buys are capital-checked.
func (p *Portfolio) CanAfford(action TradeAction, size, price decimal.Decimal) bool {
	if action != ActionBuy {
		return true
	}
	return p.Cash.GreaterThanOrEqual(size.Mul(price))
}
