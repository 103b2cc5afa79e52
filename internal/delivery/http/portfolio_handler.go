package http

import (
	"time"

	"github.com/labstack/echo/v4"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/middleware"
)

// PortfolioHandler exposes the ledger over HTTP: trade execution, account
// initialization, and the read-only query surface.
type PortfolioHandler struct {
	ledger domain.Ledger
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(ledger domain.Ledger) *PortfolioHandler {
	return &PortfolioHandler{
		ledger: ledger,
	}
}

// Initialize creates the user's portfolio with starting cash. Idempotent.
// POST /api/user/portfolio/initialize
func (h *PortfolioHandler) Initialize(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	portfolio, existed, err := h.ledger.InitializePortfolio(c.Request().Context(), userID)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	if existed {
		return SuccessMessageResponse(c, "Portfolio already initialized", portfolioOutput(portfolio))
	}
	return SuccessMessageResponse(c, "Portfolio initialized", portfolioOutput(portfolio))
}

// GetPortfolio returns the current account snapshot
// GET /api/user/portfolio
func (h *PortfolioHandler) GetPortfolio(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	portfolio, err := h.ledger.GetAccount(c.Request().Context(), userID)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	return SuccessResponse(c, portfolioOutput(portfolio))
}

// ExecuteTrade executes one trade against the user's ledger
// POST /api/user/trades
func (h *PortfolioHandler) ExecuteTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.ExecuteTradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	receipt, err := h.ledger.ExecuteTrade(c.Request().Context(), userID, domain.TradeRequest{
		Asset:  req.Symbol,
		Action: domain.TradeAction(req.Action),
		Size:   req.Shares,
		Price:  req.Price,
	})
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	return CreatedResponse(c, dto.ExecuteTradeResponse{
		TradeID: receipt.Trade.ID.String(),
		Symbol:  receipt.Trade.Asset,
		Action:  string(receipt.Trade.Action),
		Shares:  receipt.Trade.Size,
		Price:   receipt.Trade.Price,
		Total:   receipt.Trade.Cost(),
	})
}

// ListTrades returns the user's full trade history, oldest first
// GET /api/user/trades
func (h *PortfolioHandler) ListTrades(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	trades, err := h.ledger.ListTrades(c.Request().Context(), userID)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	out := make([]dto.TradeOutput, 0, len(trades))
	for _, trade := range trades {
		out = append(out, dto.TradeOutput{
			ID:         trade.ID.String(),
			Asset:      trade.Asset,
			Action:     string(trade.Action),
			Price:      trade.Price,
			Size:       trade.Size,
			PnL:        trade.PnL,
			Strategy:   trade.Strategy,
			ExecutedAt: trade.Timestamp.Format(time.RFC3339),
		})
	}

	return SuccessResponse(c, out)
}

// ListPositions returns the user's positions, newest first
// GET /api/user/positions?open=true
func (h *PortfolioHandler) ListPositions(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	openOnly := c.QueryParam("open") == "true"

	positions, err := h.ledger.ListPositions(c.Request().Context(), userID, openOnly)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	out := make([]dto.PositionOutput, 0, len(positions))
	for _, position := range positions {
		out = append(out, positionOutput(position))
	}

	return SuccessResponse(c, out)
}

func portfolioOutput(p *domain.Portfolio) dto.PortfolioOutput {
	return dto.PortfolioOutput{
		ID:              p.ID.String(),
		Cash:            p.Cash,
		TotalEquity:     p.TotalEquity,
		Stocks:          p.Stocks,
		UnrealizedPnL:   p.UnrealizedPnL,
		DailyPnL:        p.DailyPnL,
		DailyPnLPercent: p.DailyPnLPercent,
		WinRate:         p.WinRate,
		OpenPositions:   p.OpenPositions,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}

func positionOutput(p *domain.Position) dto.PositionOutput {
	out := dto.PositionOutput{
		ID:            p.ID.String(),
		Asset:         p.Asset,
		Side:          p.Side(),
		Size:          p.Size,
		AvgEntryPrice: p.AvgEntryPrice,
		CurrentPrice:  p.CurrentPrice,
		RealizedPnL:   p.RealizedPnL,
		Status:        p.Status,
		OpenedAt:      p.OpenedAt.Format(time.RFC3339),
	}
	if p.ClosedAt != nil {
		closedAt := p.ClosedAt.Format(time.RFC3339)
		out.ClosedAt = &closedAt
	}
	return out
}
