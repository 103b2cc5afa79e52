package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"papertrade/internal/domain"
)

// AdminHandler handles admin-only requests
type AdminHandler struct {
	portfolioRepo domain.PortfolioRepository
	db            interface{ Ping(context.Context) error }
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(portfolioRepo domain.PortfolioRepository, db interface{ Ping(context.Context) error }) *AdminHandler {
	return &AdminHandler{
		portfolioRepo: portfolioRepo,
		db:            db,
	}
}

// GetAccounts returns every portfolio account, oldest first
// GET /api/admin/accounts
func (h *AdminHandler) GetAccounts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	portfolios, err := h.portfolioRepo.GetAll(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to list accounts")
	}

	out := make([]map[string]interface{}, 0, len(portfolios))
	for _, portfolio := range portfolios {
		out = append(out, map[string]interface{}{
			"user_id":   portfolio.UserID.String(),
			"portfolio": portfolioOutput(portfolio),
		})
	}

	return SuccessResponse(c, out)
}

// GetSystemHealth reports service and database health
// GET /api/admin/system/health
func (h *AdminHandler) GetSystemHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	return SuccessResponse(c, map[string]string{
		"service":   "papertrade",
		"database":  dbStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
