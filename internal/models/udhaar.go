package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UdhaarRecord is the running credit balance for one (owner, customer phone)
// pair. It is the source of truth for how much the customer currently owes.
// Invariant after every mutation: TotalRemaining == sum of the bills'
// RemainingAmount, and no bill's RemainingAmount is negative.
type UdhaarRecord struct {
	ID             int64           `json:"id"`
	OwnerID        int64           `json:"owner_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerPhone  string          `json:"customer_phone"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	Bills          []UdhaarBill    `json:"bills"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UdhaarBill is the denormalized snapshot of one credit-bearing bill inside
// an udhaar record. Payments apply FIFO by bill date across these entries.
type UdhaarBill struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"bill_id"`
	BillNumber      string          `json:"bill_number"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	BillDate        time.Time       `json:"bill_date"`
	Payments        []Payment       `json:"payments"`
}

// Settled reports whether this record is fully drained. Settled records are
// kept, not deleted.
func (u *UdhaarRecord) Settled() bool {
	return u.TotalRemaining.IsZero()
}
