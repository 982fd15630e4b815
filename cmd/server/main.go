package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"sunar-backend/internal/auth"
	"sunar-backend/internal/cache"
	"sunar-backend/internal/config"
	"sunar-backend/internal/database"
	"sunar-backend/internal/db"
	"sunar-backend/internal/handlers"
	"sunar-backend/internal/health"
	h "sunar-backend/internal/http"
	"sunar-backend/internal/middleware"
	"sunar-backend/internal/repositories"
	"sunar-backend/internal/services"
)

func main() {
	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := migrator.RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("Migration failed: %v", err)
	}
	cancel()

	// Redis is optional; reports fall back to the database when it is down.
	if err := cache.Init(); err != nil {
		log.Printf("[Cache] Redis unavailable, running without cache: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	stockRepo := repositories.NewStockRepository(pool)
	billRepo := repositories.NewBillRepository(pool)
	udhaarRepo := repositories.NewUdhaarRepository(pool)
	transactionRepo := repositories.NewOnlineTransactionRepository(pool)

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	stockService := services.NewStockService(stockRepo)
	billingService := services.NewBillingService(stockRepo, billRepo, udhaarRepo)
	udhaarService := services.NewUdhaarService(udhaarRepo)
	invoiceService := services.NewInvoiceService(billRepo, userRepo)
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret,
		transactionRepo, billingService, udhaarService,
	)

	reconciler := services.NewLedgerReconciler(billRepo, udhaarRepo, time.Minute)
	reconciler.Start()
	defer reconciler.Stop()

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	stockHandler := handlers.NewStockHandler(stockService)
	billHandler := handlers.NewBillHandler(billingService)
	udhaarHandler := handlers.NewUdhaarHandler(udhaarService, billingService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool))

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	router := h.NewRouter(
		authHandler,
		stockHandler,
		billHandler,
		udhaarHandler,
		invoiceHandler,
		razorpayHandler,
		healthHandler,
		authMiddleware,
	)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
