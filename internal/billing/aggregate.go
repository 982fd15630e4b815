package billing

import (
	"github.com/shopspring/decimal"

	"sunar-backend/internal/models"
)

// gstComponentRate is the IGST and SGST rate, each applied to the item
// subtotal of a GST bill.
var gstComponentRate = decimal.New(15, -3) // 1.5%

// Totals holds the aggregated money fields of a bill before classification.
type Totals struct {
	Subtotal        decimal.Decimal
	IGST            decimal.Decimal
	SGST            decimal.Decimal
	OldJewelryTotal decimal.Decimal
	GrandTotal      decimal.Decimal
}

// Aggregate combines priced items, the GST flag, discount and exchanged old
// jewelry into the bill totals.
//
// A grand total below zero (discount or exchange exceeding the sale) is a
// data error and is rejected rather than clamped, so a negative balance can
// never reach the udhaar ledger.
func Aggregate(items []models.LineItem, oldJewelry []models.OldJewelryItem, discount decimal.Decimal, gstBill bool) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, Validationf("a bill needs at least one item")
	}
	if discount.IsNegative() {
		return Totals{}, Validationf("discount must not be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}

	igst, sgst := decimal.Zero, decimal.Zero
	if gstBill {
		igst = subtotal.Mul(gstComponentRate).Round(2)
		sgst = igst
	}

	oldTotal := decimal.Zero
	for _, old := range oldJewelry {
		oldTotal = oldTotal.Add(old.Total)
	}

	grand := subtotal.Add(igst).Add(sgst).Sub(discount).Sub(oldTotal)
	if grand.IsNegative() {
		return Totals{}, Validationf("grand total is negative (%s): discount and old jewelry exceed the sale value", grand.StringFixed(2))
	}

	return Totals{
		Subtotal:        subtotal,
		IGST:            igst,
		SGST:            sgst,
		OldJewelryTotal: oldTotal,
		GrandTotal:      grand,
	}, nil
}

// Classify derives paid amount, remaining amount and status from the payment
// mode and grand total. Status is a pure function of its inputs:
//
//	Full              -> paid = grandTotal, remaining = 0, Paid
//	Udhaar, paid > 0  -> remaining = grandTotal - paid, Partial
//	Udhaar, paid == 0 -> remaining = grandTotal, Pending
func Classify(mode models.PaymentMode, paidAmount, grandTotal decimal.Decimal) (paid, remaining decimal.Decimal, status models.BillStatus, err error) {
	switch mode {
	case models.PaymentFull:
		return grandTotal, decimal.Zero, models.StatusPaid, nil
	case models.PaymentUdhaar:
		if paidAmount.IsNegative() {
			return decimal.Zero, decimal.Zero, "", Validationf("paid amount must not be negative")
		}
		if paidAmount.GreaterThan(grandTotal) {
			return decimal.Zero, decimal.Zero, "", Validationf("paid amount %s exceeds grand total %s on an udhaar bill", paidAmount.StringFixed(2), grandTotal.StringFixed(2))
		}
		remaining = grandTotal.Sub(paidAmount)
		if paidAmount.IsPositive() {
			return paidAmount, remaining, models.StatusPartial, nil
		}
		return paidAmount, remaining, models.StatusPending, nil
	default:
		return decimal.Zero, decimal.Zero, "", Validationf("unknown payment mode %q", mode)
	}
}
