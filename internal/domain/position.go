package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is the current signed holding of one asset for one user.
// Size > 0 is a long lot, Size < 0 a short lot. At most one OPEN position
// exists per (user, asset) pair; closed positions are retained as history.
type Position struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"user_id"`
	Asset         string           `json:"asset"`
	Size          decimal.Decimal  `json:"size"`
	AvgEntryPrice decimal.Decimal  `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal  `json:"current_price"`
	RealizedPnL   *decimal.Decimal `json:"realized_pnl,omitempty"`
	Strategy      string           `json:"strategy"`
	Status        string           `json:"status"`
	OpenedAt      time.Time        `json:"opened_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// PositionStatus constants
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// PositionSide constants
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// NewPosition opens a fresh lot from a fill.
func NewPosition(userID uuid.UUID, asset string, signedSize, price decimal.Decimal, now time.Time) *Position {
	return &Position{
		ID:            uuid.New(),
		UserID:        userID,
		Asset:         asset,
		Size:          signedSize,
		AvgEntryPrice: price,
		CurrentPrice:  price,
		Strategy:      StrategyManual,
		Status:        StatusOpen,
		OpenedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Side reports LONG or SHORT from the sign of the holding.
func (p *Position) Side() string {
	if p.Size.IsNegative() {
		return SideShort
	}
	return SideLong
}

// IsOpen reports whether the lot is still open (close timestamp unset).
func (p *Position) IsOpen() bool {
	return p.ClosedAt == nil
}

// UnrealizedPnL values the open lot against a mark price. The signed size
// makes one formula cover both directions: a short lot (negative size) gains
// as the mark drops below the average entry.
func (p *Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	return mark.Sub(p.AvgEntryPrice).Mul(p.Size)
}

// MarketValue is the signed mark-to-market value of the lot.
func (p *Position) MarketValue(mark decimal.Decimal) decimal.Decimal {
	return mark.Mul(p.Size)
}

// FillOutcome describes what applying a fill did to a lot.
type FillOutcome struct {
	// RealizedPnL is set when the fill closed some or all of the lot.
	RealizedPnL *decimal.Decimal
	// Closed reports that the lot transitioned OPEN -> CLOSED.
	Closed bool
	// Remainder is the signed size left over after a direction flip; the
	// caller must open a fresh lot for it at the fill price. Zero unless
	// the fill flipped direction.
	Remainder decimal.Decimal
}

// ApplyFill folds one fill into the lot and returns what happened.
//
// Same-direction fills that grow the lot recompute the size-weighted average
// entry price; fills that shrink it keep the average and realize PnL on the
// closed quantity. A fill that returns the signed size exactly to zero
// realizes PnL on the whole lot and closes it. A fill that overshoots zero
// (direction flip) closes the lot the same way and reports the signed
// remainder so the caller can open a fresh lot at the fill price: the
// weighted-mean formula is meaningless across a sign change.
func (p *Position) ApplyFill(action TradeAction, size, price decimal.Decimal, now time.Time) FillOutcome {
	delta := SignedSize(action, size)
	oldQty := p.Size
	newQty := oldQty.Add(delta)
	p.CurrentPrice = price
	p.UpdatedAt = now

	switch {
	case newQty.IsZero():
		pnl := p.realize(price, oldQty.Abs())
		p.close(now, pnl)
		return FillOutcome{RealizedPnL: &pnl, Closed: true}

	case sameSide(oldQty, newQty):
		if newQty.Abs().GreaterThan(oldQty.Abs()) {
			// Scale-in: weighted mean over same-signed quantities.
			p.AvgEntryPrice = weightedAvg(p.AvgEntryPrice, oldQty.Abs(), price, delta.Abs())
			p.Size = newQty
			return FillOutcome{}
		}
		// Partial reduction: average untouched, realize on the closed part.
		pnl := p.realize(price, delta.Abs())
		p.Size = newQty
		return FillOutcome{RealizedPnL: &pnl}

	default:
		// Direction flip: realize on the full old lot, close it, and hand
		// the remainder back for a fresh lot.
		pnl := p.realize(price, oldQty.Abs())
		p.close(now, pnl)
		return FillOutcome{RealizedPnL: &pnl, Closed: true, Remainder: newQty}
	}
}

// realize computes PnL for closing closedQty units of the lot at price.
func (p *Position) realize(price, closedQty decimal.Decimal) decimal.Decimal {
	perUnit := price.Sub(p.AvgEntryPrice)
	if p.Size.IsNegative() {
		perUnit = perUnit.Neg()
	}
	return perUnit.Mul(closedQty)
}

func (p *Position) close(now time.Time, pnl decimal.Decimal) {
	p.Size = decimal.Zero
	p.Status = StatusClosed
	p.RealizedPnL = &pnl
	p.ClosedAt = &now
}

func sameSide(a, b decimal.Decimal) bool {
	return (a.IsPositive() && b.IsPositive()) || (a.IsNegative() && b.IsNegative())
}

func weightedAvg(existingAvg, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvg.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
