package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

// ValuationService marks open positions to market and refreshes each
// account's derived fields (equity, unrealized PnL, daily PnL, win rate,
// open-position count). Runs on a schedule; never touches cash or the trade
// log, so it cannot race the ledger's invariants.
type ValuationService struct {
	portfolioRepo domain.PortfolioRepository
	positionRepo  domain.PositionRepository
	tradeRepo     domain.TradeRepository
	priceService  domain.MarketPriceService
}

// NewValuationService creates a new ValuationService
func NewValuationService(
	portfolioRepo domain.PortfolioRepository,
	positionRepo domain.PositionRepository,
	tradeRepo domain.TradeRepository,
	priceService domain.MarketPriceService,
) *ValuationService {
	return &ValuationService{
		portfolioRepo: portfolioRepo,
		positionRepo:  positionRepo,
		tradeRepo:     tradeRepo,
		priceService:  priceService,
	}
}

// RevalueAll refreshes mark prices on all open positions and recomputes the
// derived account fields for every portfolio.
func (s *ValuationService) RevalueAll(ctx context.Context) error {
	positions, err := s.positionRepo.GetAllOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to get open positions: %w", err)
	}

	prices, err := s.fetchMarks(ctx, positions)
	if err != nil {
		return err
	}

	// Refresh cached marks, keeping the last known price for symbols the
	// feed could not quote this round.
	byUser := make(map[uuid.UUID][]*domain.Position)
	for _, position := range positions {
		if mark, ok := prices[position.Asset]; ok {
			if err := s.positionRepo.UpdateMark(ctx, position.ID, mark); err != nil {
				log.Printf("ERROR: Failed to update mark for %s: %v", position.Asset, err)
			} else {
				position.CurrentPrice = mark
			}
		}
		byUser[position.UserID] = append(byUser[position.UserID], position)
	}

	portfolios, err := s.portfolioRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get portfolios: %w", err)
	}

	startOfDay := utils.GetStartOfDay()
	for _, portfolio := range portfolios {
		if err := s.revalue(ctx, portfolio, byUser[portfolio.UserID], startOfDay); err != nil {
			log.Printf("ERROR: Failed to revalue portfolio for user %s: %v", portfolio.UserID, err)
		}
	}

	return nil
}

// fetchMarks pulls quotes for the distinct symbols held open. A partial
// response is usable; missing symbols just keep their last mark.
func (s *ValuationService) fetchMarks(ctx context.Context, positions []*domain.Position) (map[string]decimal.Decimal, error) {
	symbolSet := make(map[string]bool)
	for _, position := range positions {
		symbolSet[position.Asset] = true
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	prices, err := s.priceService.FetchRealTimePrices(ctx, symbols)
	if err != nil {
		if strings.Contains(err.Error(), "missing prices") {
			log.Printf("[WARN] Partial quote fetch: %v", err)
			return prices, nil
		}
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	return prices, nil
}

// revalue recomputes one account's derived fields from its open lots.
// Daily PnL is today's realized PnL plus the current unrealized PnL of the
// open lots; the percentage is taken against the equity at the start of the
// day (equity minus today's PnL).
func (s *ValuationService) revalue(ctx context.Context, portfolio *domain.Portfolio, open []*domain.Position, startOfDay time.Time) error {
	stocks := decimal.Zero
	unrealized := decimal.Zero
	for _, position := range open {
		stocks = stocks.Add(position.MarketValue(position.CurrentPrice))
		unrealized = unrealized.Add(position.UnrealizedPnL(position.CurrentPrice))
	}

	realizedToday, err := s.tradeRepo.GetRealizedPnLSince(ctx, portfolio.UserID, startOfDay)
	if err != nil {
		return err
	}

	winRate, err := s.tradeRepo.GetWinRate(ctx, portfolio.UserID)
	if err != nil {
		return err
	}

	portfolio.Stocks = stocks
	portfolio.UnrealizedPnL = unrealized
	portfolio.TotalEquity = portfolio.Cash.Add(stocks)
	portfolio.DailyPnL = realizedToday.Add(unrealized)
	portfolio.WinRate = winRate
	portfolio.OpenPositions = len(open)

	base := portfolio.TotalEquity.Sub(portfolio.DailyPnL)
	if base.IsPositive() {
		portfolio.DailyPnLPercent = portfolio.DailyPnL.Div(base).Mul(decimal.NewFromInt(100))
	} else {
		portfolio.DailyPnLPercent = decimal.Zero
	}

	return s.portfolioRepo.UpdateValuation(ctx, portfolio)
}
