package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sunar-backend/internal/models"
)

func entry(id, billID int64, remaining string, day int) models.UdhaarBill {
	rem := dec(remaining)
	return models.UdhaarBill{
		ID:              id,
		BillID:          billID,
		TotalAmount:     rem,
		RemainingAmount: rem,
		BillDate:        time.Date(2024, 7, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestAllocatePaymentFIFO(t *testing.T) {
	// B1 (older, 500 remaining) then B2 (newer, 300 remaining): a payment of
	// 700 drains B1 and leaves 100 on B2.
	entries := []models.UdhaarBill{
		entry(1, 11, "500", 1),
		entry(2, 12, "300", 15),
	}

	allocs, err := AllocatePayment(entries, dec("700"))
	if err != nil {
		t.Fatalf("AllocatePayment: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("got %d allocations, want 2", len(allocs))
	}
	if allocs[0].UdhaarBillID != 1 || !allocs[0].Amount.Equal(dec("500")) {
		t.Errorf("first allocation = (%d, %s), want (1, 500)", allocs[0].UdhaarBillID, allocs[0].Amount)
	}
	if allocs[1].UdhaarBillID != 2 || !allocs[1].Amount.Equal(dec("200")) {
		t.Errorf("second allocation = (%d, %s), want (2, 200)", allocs[1].UdhaarBillID, allocs[1].Amount)
	}
}

func TestAllocatePaymentStopsAtAmount(t *testing.T) {
	entries := []models.UdhaarBill{
		entry(1, 11, "400", 1),
		entry(2, 12, "400", 2),
		entry(3, 13, "400", 3),
	}

	allocs, err := AllocatePayment(entries, dec("400"))
	if err != nil {
		t.Fatalf("AllocatePayment: %v", err)
	}
	if len(allocs) != 1 || allocs[0].UdhaarBillID != 1 {
		t.Fatalf("allocations = %+v, want only the oldest entry", allocs)
	}
}

func TestAllocatePaymentSkipsSettledEntries(t *testing.T) {
	settled := entry(1, 11, "0", 1)
	open := entry(2, 12, "250", 2)

	allocs, err := AllocatePayment([]models.UdhaarBill{settled, open}, dec("100"))
	if err != nil {
		t.Fatalf("AllocatePayment: %v", err)
	}
	if len(allocs) != 1 || allocs[0].UdhaarBillID != 2 {
		t.Fatalf("allocations = %+v, want only the open entry", allocs)
	}
}

func TestAllocatePaymentNeverOverdraws(t *testing.T) {
	entries := []models.UdhaarBill{
		entry(1, 11, "123.45", 1),
		entry(2, 12, "67.89", 2),
	}

	allocs, err := AllocatePayment(entries, dec("150"))
	if err != nil {
		t.Fatalf("AllocatePayment: %v", err)
	}
	total := decimal.Zero
	for i, a := range allocs {
		if a.Amount.GreaterThan(entries[i].RemainingAmount) {
			t.Errorf("allocation %d (%s) exceeds entry remaining %s", i, a.Amount, entries[i].RemainingAmount)
		}
		total = total.Add(a.Amount)
	}
	if !total.Equal(dec("150")) {
		t.Errorf("allocated %s in total, want 150", total)
	}
}

func TestAllocatePaymentRejects(t *testing.T) {
	entries := []models.UdhaarBill{entry(1, 11, "100", 1)}

	if _, err := AllocatePayment(entries, decimal.Zero); !IsKind(err, KindInvalidAmount) {
		t.Errorf("zero amount: err = %v, want InvalidAmount", err)
	}
	if _, err := AllocatePayment(entries, dec("-10")); !IsKind(err, KindInvalidAmount) {
		t.Errorf("negative amount: err = %v, want InvalidAmount", err)
	}
	if _, err := AllocatePayment(entries, dec("100.01")); !IsKind(err, KindInvalidAmount) {
		t.Errorf("overpayment: err = %v, want InvalidAmount", err)
	}

	corrupt := entry(1, 11, "-5", 1)
	if _, err := AllocatePayment([]models.UdhaarBill{corrupt}, dec("10")); !IsKind(err, KindConsistency) {
		t.Errorf("negative entry: err = %v, want ConsistencyError", err)
	}
}
