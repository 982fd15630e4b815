package billing

import (
	"github.com/shopspring/decimal"

	"sunar-backend/internal/models"
)

// Allocation is one slice of an incoming payment applied to a single
// credit-bearing bill entry.
type Allocation struct {
	UdhaarBillID int64
	BillID       int64
	Amount       decimal.Decimal
}

// AllocatePayment splits amount across the customer's udhaar bill entries,
// oldest bill date first. Each entry absorbs at most its remaining amount, so
// no entry ever goes negative. The entries must already be ordered by
// ascending bill date, which is how UdhaarRepository loads them.
//
// Overpayment beyond the customer's total outstanding is rejected: the shop
// does not carry negative balances, the caller should hand back change.
func AllocatePayment(entries []models.UdhaarBill, amount decimal.Decimal) ([]Allocation, error) {
	if !amount.IsPositive() {
		return nil, InvalidAmountf("payment amount %s must be greater than zero", amount.StringFixed(2))
	}

	outstanding := decimal.Zero
	for _, e := range entries {
		if e.RemainingAmount.IsNegative() {
			return nil, Consistencyf("udhaar bill %d has negative remaining amount %s", e.ID, e.RemainingAmount.StringFixed(2))
		}
		outstanding = outstanding.Add(e.RemainingAmount)
	}
	if amount.GreaterThan(outstanding) {
		return nil, InvalidAmountf("payment %s exceeds total outstanding %s", amount.StringFixed(2), outstanding.StringFixed(2))
	}

	var allocations []Allocation
	left := amount
	for _, e := range entries {
		if left.IsZero() {
			break
		}
		if !e.RemainingAmount.IsPositive() {
			continue
		}
		deduct := decimal.Min(e.RemainingAmount, left)
		allocations = append(allocations, Allocation{
			UdhaarBillID: e.ID,
			BillID:       e.BillID,
			Amount:       deduct,
		})
		left = left.Sub(deduct)
	}

	return allocations, nil
}
