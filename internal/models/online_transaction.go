package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OnlineTransactionStatus tracks a payment-gateway order through its life.
type OnlineTransactionStatus string

const (
	TxnCreated OnlineTransactionStatus = "created"
	TxnSuccess OnlineTransactionStatus = "success"
	TxnFailed  OnlineTransactionStatus = "failed"
)

// OnlineTransaction is the audit row for a gateway-collected udhaar payment.
// The udhaar ledger is only touched after the gateway signature verifies.
type OnlineTransaction struct {
	ID            int64                   `json:"id"`
	OwnerID       int64                   `json:"owner_id"`
	OrderID       string                  `json:"razorpay_order_id"`
	PaymentID     string                  `json:"razorpay_payment_id,omitempty"`
	CustomerName  string                  `json:"customer_name"`
	CustomerPhone string                  `json:"customer_phone"`
	Amount        decimal.Decimal         `json:"amount"`
	Status        OnlineTransactionStatus `json:"status"`
	FailureReason string                  `json:"failure_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

type CreateOrderRequest struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Amount        decimal.Decimal `json:"amount"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
