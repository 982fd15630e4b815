package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
	"sunar-backend/internal/repositories"
)

var paise = decimal.NewFromInt(100)

// RazorpayService collects udhaar payments through the payment gateway. The
// ledger is only credited after the gateway signature verifies; every order
// leaves an audit row regardless of outcome.
type RazorpayService struct {
	TransactionRepo *repositories.OnlineTransactionRepository
	Billing         *BillingService
	Udhaar          *UdhaarService

	keyID     string
	keySecret string
}

func NewRazorpayService(keyID, keySecret string, transactionRepo *repositories.OnlineTransactionRepository, billingService *BillingService, udhaarService *UdhaarService) *RazorpayService {
	return &RazorpayService{
		TransactionRepo: transactionRepo,
		Billing:         billingService,
		Udhaar:          udhaarService,
		keyID:           keyID,
		keySecret:       keySecret,
	}
}

func (s *RazorpayService) Enabled() bool {
	return s.keyID != "" && s.keySecret != ""
}

func (s *RazorpayService) client() *razorpay.Client {
	if !s.Enabled() {
		return nil
	}
	return razorpay.NewClient(s.keyID, s.keySecret)
}

type CreateOrderResponse struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"` // paise
	Currency      string `json:"currency"`
	KeyID         string `json:"key_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// CreateOrder opens a gateway order for a customer's udhaar payment. The
// amount is validated against the customer's outstanding balance up front so
// the customer cannot be charged more than they owe.
func (s *RazorpayService) CreateOrder(ctx context.Context, ownerID int64, req *models.CreateOrderRequest) (*CreateOrderResponse, error) {
	client := s.client()
	if client == nil {
		return nil, fmt.Errorf("online payments are not configured")
	}
	if !req.Amount.IsPositive() {
		return nil, billing.InvalidAmountf("payment amount %s must be greater than zero", req.Amount.StringFixed(2))
	}

	record, err := s.Udhaar.GetDetail(ctx, ownerID, req.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(record.TotalRemaining) {
		return nil, billing.InvalidAmountf("payment %s exceeds outstanding balance %s",
			req.Amount.StringFixed(2), record.TotalRemaining.StringFixed(2))
	}

	amountPaise := req.Amount.Mul(paise).IntPart()
	orderData := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  fmt.Sprintf("udhr_%d_%d", ownerID, time.Now().Unix()),
		"notes": map[string]interface{}{
			"customer_phone": req.CustomerPhone,
		},
	}

	order, err := client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}
	orderID, _ := order["id"].(string)

	txn := &models.OnlineTransaction{
		OwnerID:       ownerID,
		OrderID:       orderID,
		CustomerName:  record.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Amount:        req.Amount,
		Status:        models.TxnCreated,
	}
	if err := s.TransactionRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	return &CreateOrderResponse{
		OrderID:       orderID,
		Amount:        amountPaise,
		Currency:      "INR",
		KeyID:         s.keyID,
		CustomerName:  record.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}, nil
}

// VerifyPayment checks the gateway signature and, on success, applies the
// collected amount to the customer's udhaar ledger FIFO. Replays of an
// already-verified order return the existing record without paying twice.
func (s *RazorpayService) VerifyPayment(ctx context.Context, ownerID int64, req *models.VerifyPaymentRequest) (*models.UdhaarRecord, error) {
	txn, err := s.TransactionRepo.GetByOrderID(ctx, ownerID, req.OrderID)
	if err != nil {
		return nil, err
	}

	if !s.verifySignature(req.OrderID, req.PaymentID, req.Signature) {
		if markErr := s.TransactionRepo.MarkFailed(ctx, txn.ID, "invalid signature"); markErr != nil {
			log.Printf("[Razorpay] failed to mark order %s failed: %v", req.OrderID, markErr)
		}
		return nil, billing.Forbiddenf("invalid payment signature for order %s", req.OrderID)
	}

	if txn.Status == models.TxnSuccess {
		return s.Udhaar.GetDetail(ctx, ownerID, txn.CustomerPhone)
	}

	record, err := s.Billing.RecordCreditPayment(ctx, ownerID, txn.CustomerPhone, txn.Amount)
	if err != nil {
		if markErr := s.TransactionRepo.MarkFailed(ctx, txn.ID, err.Error()); markErr != nil {
			log.Printf("[Razorpay] failed to mark order %s failed: %v", req.OrderID, markErr)
		}
		return nil, err
	}

	if err := s.TransactionRepo.MarkSuccess(ctx, txn.ID, req.PaymentID); err != nil {
		log.Printf("[Razorpay] payment applied but order %s not marked success: %v", req.OrderID, err)
	}
	return record, nil
}

func (s *RazorpayService) verifySignature(orderID, paymentID, signature string) bool {
	if s.keySecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(s.keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *RazorpayService) ListTransactions(ctx context.Context, ownerID int64, limit int) ([]models.OnlineTransaction, error) {
	return s.TransactionRepo.List(ctx, ownerID, limit)
}
