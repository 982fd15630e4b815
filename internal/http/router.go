package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sunar-backend/internal/handlers"
	"sunar-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	stockHandler *handlers.StockHandler,
	billHandler *handlers.BillHandler,
	udhaarHandler *handlers.UdhaarHandler,
	invoiceHandler *handlers.InvoiceHandler,
	razorpayHandler *handlers.RazorpayHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/health/ledger", healthHandler.LedgerHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected routes - Profile
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/me", authHandler.Me).Methods("GET")

	// Protected routes - Stock
	stockAPI := r.PathPrefix("/api/stock").Subrouter()
	stockAPI.Use(authMiddleware.Authenticate)
	stockAPI.HandleFunc("", stockHandler.List).Methods("GET")
	stockAPI.HandleFunc("", stockHandler.Create).Methods("POST")
	stockAPI.HandleFunc("/low-stock", stockHandler.ListLowStock).Methods("GET")
	stockAPI.HandleFunc("/{id}", stockHandler.Get).Methods("GET")
	stockAPI.HandleFunc("/{id}", stockHandler.Update).Methods("PUT")
	stockAPI.HandleFunc("/{id}", stockHandler.Delete).Methods("DELETE")

	// Protected routes - Bills
	billsAPI := r.PathPrefix("/api/bills").Subrouter()
	billsAPI.Use(authMiddleware.Authenticate)
	billsAPI.HandleFunc("", billHandler.List).Methods("GET")
	billsAPI.HandleFunc("", billHandler.Create).Methods("POST")
	billsAPI.HandleFunc("/{id}", billHandler.Get).Methods("GET")
	billsAPI.HandleFunc("/{id}/payments", billHandler.RecordPayment).Methods("POST")
	billsAPI.HandleFunc("/{id}/invoice", invoiceHandler.Download).Methods("GET")

	// Protected routes - Udhaar ledger
	udhaarAPI := r.PathPrefix("/api/udhaar").Subrouter()
	udhaarAPI.Use(authMiddleware.Authenticate)
	udhaarAPI.HandleFunc("", udhaarHandler.ListOutstanding).Methods("GET")
	udhaarAPI.HandleFunc("/{phone}", udhaarHandler.GetDetail).Methods("GET")
	udhaarAPI.HandleFunc("/{phone}/payments", udhaarHandler.RecordPayment).Methods("POST")

	// Protected routes - Online payments
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("/status", razorpayHandler.Status).Methods("GET")
	paymentsAPI.HandleFunc("/orders", razorpayHandler.CreateOrder).Methods("POST")
	paymentsAPI.HandleFunc("/verify", razorpayHandler.VerifyPayment).Methods("POST")
	paymentsAPI.HandleFunc("/transactions", razorpayHandler.ListTransactions).Methods("GET")

	return r
}
