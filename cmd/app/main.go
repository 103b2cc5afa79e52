package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"papertrade/configs"
	"papertrade/internal/database"
	delivery "papertrade/internal/delivery/http"
	"papertrade/internal/infra"
	"papertrade/internal/repository"
	"papertrade/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()

	// Initialize context
	ctx := context.Background()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run schema migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	// Initialize services
	ledger := service.NewLedgerService(db, portfolioRepo, positionRepo, tradeRepo, cfg.Ledger.StartingCash)
	priceService := service.NewMarketPriceService(cfg.Quotes.URL)
	valuation := service.NewValuationService(portfolioRepo, positionRepo, tradeRepo, priceService)

	// Mark-to-market job
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.Ledger.ValuationSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := valuation.RevalueAll(ctx); err != nil {
			log.Printf("ERROR: Valuation run failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to add valuation cron job: %v", err)
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()
	log.Printf("[OK] Valuation job scheduled (%s)", cfg.Ledger.ValuationSchedule)

	// Initialize handlers
	authHandler := delivery.NewAuthHandler(userRepo)
	portfolioHandler := delivery.NewPortfolioHandler(ledger)
	adminHandler := delivery.NewAdminHandler(portfolioRepo, db)

	// Initialize HTTP router
	e := echo.New()
	e.HideBanner = true
	delivery.SetupRoutes(e, &delivery.RouterConfig{
		AuthHandler:      authHandler,
		PortfolioHandler: portfolioHandler,
		AdminHandler:     adminHandler,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Papertrade ledger starting on %s", addr)
	log.Printf("Environment: %s", cfg.Server.Env)
	log.Printf("Starting cash: %s", cfg.Ledger.StartingCash)

	// Create HTTP server
	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[OK] Server exited gracefully")
}
