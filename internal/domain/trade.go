package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeAction is the closed set of supported trade actions.
type TradeAction string

const (
	ActionBuy   TradeAction = "buy"
	ActionSell  TradeAction = "sell"
	ActionShort TradeAction = "short"
)

// ParseTradeAction validates a raw action string.
func ParseTradeAction(raw string) (TradeAction, bool) {
	switch action := TradeAction(raw); action {
	case ActionBuy, ActionSell, ActionShort:
		return action, true
	default:
		return "", false
	}
}

// SignedSize converts an action and an unsigned fill size into the signed
// quantity delta applied to a position: buys increase the holding, sells and
// shorts decrease it.
func SignedSize(action TradeAction, size decimal.Decimal) decimal.Decimal {
	if action == ActionBuy {
		return size
	}
	return size.Neg()
}

// Strategy tags recorded on trades.
const (
	StrategyManual = "manual"
)

// Trade is one executed fill. Trade records are append-only: once written
// they are never updated or deleted, forming the audit trail of all ledger
// mutations.
type Trade struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Asset     string           `json:"asset"`
	Action    TradeAction      `json:"action"`
	Price     decimal.Decimal  `json:"price"`
	Size      decimal.Decimal  `json:"size"`
	PnL       *decimal.Decimal `json:"pnl,omitempty"` // realized PnL when this fill closed (part of) a lot
	Strategy  string           `json:"strategy"`
	Timestamp time.Time        `json:"timestamp"`
	CreatedAt time.Time        `json:"created_at"`
}

// Cost returns the notional value of the fill (size * price).
func (t *Trade) Cost() decimal.Decimal {
	return t.Size.Mul(t.Price)
}
