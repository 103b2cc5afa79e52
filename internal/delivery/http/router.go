package http

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "papertrade/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AuthHandler      *AuthHandler
	PortfolioHandler *PortfolioHandler
	AdminHandler     *AdminHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging for high-frequency polling endpoints to reduce noise
			path := c.Request().URL.Path
			if strings.HasSuffix(path, "/api/user/portfolio") {
				return true
			}
			if path == "/health" || path == "/api/admin/system/health" {
				return true
			}
			return false
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())

	// Health check
	e.GET("/health", config.AdminHandler.GetSystemHealth)

	// API group
	api := e.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/login", config.AuthHandler.Login)
		auth.POST("/logout", config.AuthHandler.Logout)
		auth.POST("/register", config.AuthHandler.Register)
	}

	// User routes (protected with AuthMiddleware)
	user := api.Group("/user", custommiddleware.AuthMiddleware)
	{
		user.POST("/portfolio/initialize", config.PortfolioHandler.Initialize)
		user.GET("/portfolio", config.PortfolioHandler.GetPortfolio)
		user.POST("/trades", config.PortfolioHandler.ExecuteTrade)
		user.GET("/trades", config.PortfolioHandler.ListTrades)
		user.GET("/positions", config.PortfolioHandler.ListPositions)
	}

	// Admin routes (protected with Auth + Admin middleware)
	admin := api.Group("/admin", custommiddleware.AuthMiddleware, custommiddleware.AdminMiddleware)
	{
		admin.GET("/accounts", config.AdminHandler.GetAccounts)
		admin.GET("/system/health", config.AdminHandler.GetSystemHealth)
	}
}
