package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func openLot(signedSize, avg string) *Position {
	return NewPosition(uuid.New(), "AAPL", dec(signedSize), dec(avg), time.UnixMilli(1))
}

func TestPositionApplyFill(t *testing.T) {
	now := time.UnixMilli(2)

	tests := []struct {
		name        string
		position    *Position
		action      TradeAction
		size        string
		price       string
		wantSize    string
		wantAvg     string
		wantPnL     string // "" = no realization
		wantClosed  bool
		wantRemnant string // "" = no remainder
	}{
		{
			name:     "scale-in long recomputes weighted average",
			position: openLot("10", "150"),
			action:   ActionBuy,
			size:     "10",
			price:    "170",
			wantSize: "20",
			wantAvg:  "160",
		},
		{
			name:     "partial reduce keeps average and realizes on closed part",
			position: openLot("10", "100"),
			action:   ActionSell,
			size:     "4",
			price:    "105",
			wantSize: "6",
			wantAvg:  "100",
			wantPnL:  "20",
		},
		{
			name:       "exact close realizes full lot",
			position:   openLot("10", "100"),
			action:     ActionSell,
			size:       "10",
			price:      "110",
			wantSize:   "0",
			wantPnL:    "100",
			wantClosed: true,
		},
		{
			name:        "flip long to short realizes old lot and reports remainder",
			position:    openLot("5", "100"),
			action:      ActionSell,
			size:        "8",
			price:       "90",
			wantSize:    "0",
			wantPnL:     "-50",
			wantClosed:  true,
			wantRemnant: "-3",
		},
		{
			name:     "short scale-in recomputes weighted average",
			position: openLot("-10", "50"),
			action:   ActionShort,
			size:     "5",
			price:    "44",
			wantSize: "-15",
			wantAvg:  "48",
		},
		{
			name:     "short partial cover realizes gain when price dropped",
			position: openLot("-10", "50"),
			action:   ActionBuy,
			size:     "4",
			price:    "45",
			wantSize: "-6",
			wantAvg:  "50",
			wantPnL:  "20",
		},
		{
			name:       "short exact cover realizes loss when price rose",
			position:   openLot("-10", "50"),
			action:     ActionBuy,
			size:       "10",
			price:      "55",
			wantSize:   "0",
			wantPnL:    "-50",
			wantClosed: true,
		},
		{
			name:        "flip short to long",
			position:    openLot("-5", "40"),
			action:      ActionBuy,
			size:        "12",
			price:       "38",
			wantSize:    "0",
			wantPnL:     "10",
			wantClosed:  true,
			wantRemnant: "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := tt.position.ApplyFill(tt.action, dec(tt.size), dec(tt.price), now)

			if !tt.position.Size.Equal(dec(tt.wantSize)) {
				t.Errorf("size = %s, want %s", tt.position.Size, tt.wantSize)
			}
			if tt.wantAvg != "" && !tt.position.AvgEntryPrice.Equal(dec(tt.wantAvg)) {
				t.Errorf("avg entry price = %s, want %s", tt.position.AvgEntryPrice, tt.wantAvg)
			}

			if tt.wantPnL == "" {
				if outcome.RealizedPnL != nil {
					t.Errorf("realized PnL = %s, want none", outcome.RealizedPnL)
				}
			} else {
				if outcome.RealizedPnL == nil {
					t.Fatalf("realized PnL = nil, want %s", tt.wantPnL)
				}
				if !outcome.RealizedPnL.Equal(dec(tt.wantPnL)) {
					t.Errorf("realized PnL = %s, want %s", outcome.RealizedPnL, tt.wantPnL)
				}
			}

			if outcome.Closed != tt.wantClosed {
				t.Errorf("closed = %v, want %v", outcome.Closed, tt.wantClosed)
			}
			if tt.wantClosed {
				if tt.position.ClosedAt == nil {
					t.Error("closed lot has no close timestamp")
				}
				if tt.position.Status != StatusClosed {
					t.Errorf("status = %s, want %s", tt.position.Status, StatusClosed)
				}
			} else if tt.position.ClosedAt != nil {
				t.Error("open lot has a close timestamp")
			}

			if tt.wantRemnant == "" {
				if !outcome.Remainder.IsZero() {
					t.Errorf("remainder = %s, want zero", outcome.Remainder)
				}
			} else if !outcome.Remainder.Equal(dec(tt.wantRemnant)) {
				t.Errorf("remainder = %s, want %s", outcome.Remainder, tt.wantRemnant)
			}
		})
	}
}

func TestPositionAverageIsSizeWeightedMeanOfFills(t *testing.T) {
	// A run of same-direction fills must keep the average at the
	// size-weighted mean of every fill so far.
	fills := []struct {
		size, price string
	}{
		{"10", "150"},
		{"10", "170"},
		{"5", "130"},
		{"25", "162"},
	}

	pos := NewPosition(uuid.New(), "AAPL", dec(fills[0].size), dec(fills[0].price), time.UnixMilli(1))
	totalQty := dec(fills[0].size)
	totalCost := dec(fills[0].size).Mul(dec(fills[0].price))

	for _, fill := range fills[1:] {
		pos.ApplyFill(ActionBuy, dec(fill.size), dec(fill.price), time.UnixMilli(2))
		totalQty = totalQty.Add(dec(fill.size))
		totalCost = totalCost.Add(dec(fill.size).Mul(dec(fill.price)))
	}

	want := totalCost.Div(totalQty)
	if diff := pos.AvgEntryPrice.Sub(want).Abs(); diff.GreaterThan(dec("0.00000001")) {
		t.Errorf("avg entry price = %s, want %s", pos.AvgEntryPrice, want)
	}
	if !pos.Size.Equal(totalQty) {
		t.Errorf("size = %s, want %s", pos.Size, totalQty)
	}
}

func TestPositionUnrealizedPnL(t *testing.T) {
	long := openLot("10", "100")
	if got := long.UnrealizedPnL(dec("110")); !got.Equal(dec("100")) {
		t.Errorf("long unrealized = %s, want 100", got)
	}

	short := openLot("-10", "100")
	if got := short.UnrealizedPnL(dec("90")); !got.Equal(dec("100")) {
		t.Errorf("short unrealized = %s, want 100", got)
	}
}

func TestPositionSide(t *testing.T) {
	if side := openLot("10", "100").Side(); side != SideLong {
		t.Errorf("side = %s, want %s", side, SideLong)
	}
	if side := openLot("-10", "100").Side(); side != SideShort {
		t.Errorf("side = %s, want %s", side, SideShort)
	}
}
