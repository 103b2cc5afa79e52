package dto

import "github.com/shopspring/decimal"

// ExecuteTradeRequest is the trade submission payload. Decimal fields accept
// both JSON numbers and strings without losing precision.
type ExecuteTradeRequest struct {
	Symbol string          `json:"symbol"`
	Action string          `json:"action"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
}

// ExecuteTradeResponse echoes the committed trade back to the client
type ExecuteTradeResponse struct {
	TradeID string          `json:"trade_id"`
	Symbol  string          `json:"symbol"`
	Action  string          `json:"action"`
	Shares  decimal.Decimal `json:"shares"`
	Price   decimal.Decimal `json:"price"`
	Total   decimal.Decimal `json:"total"`
}

// PortfolioOutput represents an account snapshot in API responses
type PortfolioOutput struct {
	ID              string          `json:"id"`
	Cash            decimal.Decimal `json:"cash"`
	TotalEquity     decimal.Decimal `json:"total_equity"`
	Stocks          decimal.Decimal `json:"stocks"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
	DailyPnLPercent decimal.Decimal `json:"daily_pnl_percent"`
	WinRate         decimal.Decimal `json:"win_rate"`
	OpenPositions   int             `json:"open_positions"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// PositionOutput represents a position in API responses
type PositionOutput struct {
	ID            string           `json:"id"`
	Asset         string           `json:"asset"`
	Side          string           `json:"side"`
	Size          decimal.Decimal  `json:"size"`
	AvgEntryPrice decimal.Decimal  `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal  `json:"current_price"`
	RealizedPnL   *decimal.Decimal `json:"realized_pnl,omitempty"`
	Status        string           `json:"status"`
	OpenedAt      string           `json:"opened_at"`
	ClosedAt      *string          `json:"closed_at,omitempty"`
}

// TradeOutput represents one trade record in API responses
type TradeOutput struct {
	ID         string           `json:"id"`
	Asset      string           `json:"asset"`
	Action     string           `json:"action"`
	Price      decimal.Decimal  `json:"price"`
	Size       decimal.Decimal  `json:"size"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	Strategy   string           `json:"strategy"`
	ExecutedAt string           `json:"executed_at"`
}
