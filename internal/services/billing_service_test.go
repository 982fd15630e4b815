package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeStock mimics the conditional-update semantics of the stock table.
type fakeStock struct {
	mu      sync.Mutex
	entries map[int64]*models.StockEntry
}

func newFakeStock() *fakeStock {
	return &fakeStock{entries: make(map[int64]*models.StockEntry)}
}

func (f *fakeStock) add(id int64, material models.Material, weight string) {
	f.entries[id] = &models.StockEntry{
		ID:       id,
		Material: material,
		Weight:   dec(weight),
	}
}

func (f *fakeStock) weight(id int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[id].Weight
}

func (f *fakeStock) CheckAvailability(_ context.Context, _ int64, id int64, required decimal.Decimal) (*models.StockEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, billing.NotFoundf("stock entry %d not found", id)
	}
	if entry.Weight.LessThan(required) {
		return nil, billing.InsufficientStockf("stock entry %d has %s, need %s", id, entry.Weight, required)
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeStock) Decrement(_ context.Context, _ int64, id int64, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return billing.NotFoundf("stock entry %d not found", id)
	}
	if entry.Weight.LessThan(amount) {
		return billing.InsufficientStockf("stock entry %d has %s, need %s", id, entry.Weight, amount)
	}
	entry.Weight = entry.Weight.Sub(amount)
	return nil
}

func (f *fakeStock) Restore(_ context.Context, _ int64, id int64, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return billing.NotFoundf("stock entry %d not found", id)
	}
	entry.Weight = entry.Weight.Add(amount)
	return nil
}

// fakeBills mimics the per-(owner, period) sequence and bill storage.
type fakeBills struct {
	mu        sync.Mutex
	seq       map[string]int
	bills     map[int64]*models.Bill
	nextID    int64
	createErr error
}

func newFakeBills() *fakeBills {
	return &fakeBills{seq: make(map[string]int), bills: make(map[int64]*models.Bill)}
}

func (f *fakeBills) NextBillNumber(_ context.Context, ownerID int64, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	period := at.Format("0601")
	key := period
	f.seq[key]++
	return "BILL-" + period + "-" + padSeq(f.seq[key]), nil
}

func padSeq(n int) string {
	s := ""
	for _, d := range []int{100, 10, 1} {
		s += string(rune('0' + (n/d)%10))
	}
	return s
}

func (f *fakeBills) Create(_ context.Context, bill *models.Bill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	bill.ID = f.nextID
	stored := *bill
	f.bills[bill.ID] = &stored
	return nil
}

func (f *fakeBills) Get(_ context.Context, _ int64, id int64) (*models.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bill, ok := f.bills[id]
	if !ok {
		return nil, billing.NotFoundf("bill %d not found", id)
	}
	copied := *bill
	return &copied, nil
}

func (f *fakeBills) List(_ context.Context, _ int64, _, _ int) ([]models.Bill, error) {
	return nil, nil
}

func (f *fakeBills) RecordPayment(_ context.Context, _ int64, billID int64, amount decimal.Decimal) (*models.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bill, ok := f.bills[billID]
	if !ok {
		return nil, billing.NotFoundf("bill %d not found", billID)
	}
	if amount.GreaterThan(bill.RemainingAmount) {
		return nil, billing.InvalidAmountf("payment exceeds remaining amount")
	}
	bill.PaidAmount = bill.PaidAmount.Add(amount)
	bill.RemainingAmount = bill.GrandTotal.Sub(bill.PaidAmount)
	if bill.RemainingAmount.IsZero() {
		bill.Status = models.StatusPaid
	} else {
		bill.Status = models.StatusPartial
	}
	copied := *bill
	return &copied, nil
}

// fakeUdhaar keeps one record per customer phone and allocates FIFO.
type fakeUdhaar struct {
	mu        sync.Mutex
	records   map[string]*models.UdhaarRecord
	nextID    int64
	creditErr error
	failures  int
}

func newFakeUdhaar() *fakeUdhaar {
	return &fakeUdhaar{records: make(map[string]*models.UdhaarRecord)}
}

func (f *fakeUdhaar) RecordCredit(_ context.Context, ownerID int64, bill *models.Bill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil && f.failures > 0 {
		f.failures--
		return f.creditErr
	}
	rec, ok := f.records[bill.CustomerPhone]
	if !ok {
		rec = &models.UdhaarRecord{
			OwnerID:       ownerID,
			CustomerName:  bill.CustomerName,
			CustomerPhone: bill.CustomerPhone,
		}
		f.records[bill.CustomerPhone] = rec
	}
	f.nextID++
	rec.Bills = append(rec.Bills, models.UdhaarBill{
		ID:              f.nextID,
		BillID:          bill.ID,
		BillNumber:      bill.BillNumber,
		TotalAmount:     bill.GrandTotal,
		PaidAmount:      bill.PaidAmount,
		RemainingAmount: bill.RemainingAmount,
		BillDate:        bill.BillDate,
	})
	rec.TotalRemaining = rec.TotalRemaining.Add(bill.RemainingAmount)
	return nil
}

func (f *fakeUdhaar) ApplyPayment(_ context.Context, _ int64, customerPhone string, amount decimal.Decimal) (*models.UdhaarRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[customerPhone]
	if !ok {
		return nil, billing.NotFoundf("no udhaar record for customer %s", customerPhone)
	}
	allocations, err := billing.AllocatePayment(rec.Bills, amount)
	if err != nil {
		return nil, err
	}
	for _, alloc := range allocations {
		for i := range rec.Bills {
			if rec.Bills[i].ID == alloc.UdhaarBillID {
				rec.Bills[i].PaidAmount = rec.Bills[i].PaidAmount.Add(alloc.Amount)
				rec.Bills[i].RemainingAmount = rec.Bills[i].RemainingAmount.Sub(alloc.Amount)
			}
		}
	}
	rec.TotalRemaining = rec.TotalRemaining.Sub(amount)
	copied := *rec
	return &copied, nil
}

func (f *fakeUdhaar) ListOutstanding(_ context.Context, _ int64) ([]models.UdhaarRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UdhaarRecord
	for _, rec := range f.records {
		if rec.TotalRemaining.IsPositive() {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeUdhaar) GetByPhone(_ context.Context, _ int64, customerPhone string) (*models.UdhaarRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[customerPhone]
	if !ok {
		return nil, billing.NotFoundf("no udhaar record for customer %s", customerPhone)
	}
	copied := *rec
	return &copied, nil
}

func newTestService(stock *fakeStock, bills *fakeBills, udhaar *fakeUdhaar) *BillingService {
	svc := NewBillingService(stock, bills, udhaar)
	svc.now = func() time.Time {
		return time.Date(2024, time.July, 15, 11, 0, 0, 0, time.UTC)
	}
	return svc
}

func goldItem(weight, pricePerGram string, stockID *int64) models.LineItemRequest {
	return models.LineItemRequest{
		Material:          models.MaterialGold,
		ItemName:          "Gold Chain",
		Weight:            dec(weight),
		PricePerGram:      dec(pricePerGram),
		MakingChargeMode:  models.MakingChargePerGram,
		MakingChargeValue: dec("500"),
		StockEntryID:      stockID,
	}
}

func TestCreateBillFull(t *testing.T) {
	svc := newTestService(newFakeStock(), newFakeBills(), newFakeUdhaar())

	bill, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Ramesh",
		CustomerPhone: "9876543210",
		Items:         []models.LineItemRequest{goldItem("10", "6000", nil)},
		PaymentMode:   models.PaymentFull,
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}

	if bill.BillNumber != "BILL-2407-001" {
		t.Errorf("bill number = %s, want BILL-2407-001", bill.BillNumber)
	}
	if !bill.GrandTotal.Equal(dec("65000")) {
		t.Errorf("grand total = %s, want 65000", bill.GrandTotal)
	}
	if bill.Status != models.StatusPaid || !bill.RemainingAmount.IsZero() {
		t.Errorf("full bill: status = %s, remaining = %s", bill.Status, bill.RemainingAmount)
	}
}

func TestCreateBillSequentialNumbers(t *testing.T) {
	svc := newTestService(newFakeStock(), newFakeBills(), newFakeUdhaar())

	want := []string{"BILL-2407-001", "BILL-2407-002", "BILL-2407-003"}
	for _, wantNum := range want {
		bill, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
			CustomerName:  "Ramesh",
			CustomerPhone: "9876543210",
			Items:         []models.LineItemRequest{goldItem("1", "6000", nil)},
			PaymentMode:   models.PaymentFull,
		})
		if err != nil {
			t.Fatalf("CreateBill: %v", err)
		}
		if bill.BillNumber != wantNum {
			t.Errorf("bill number = %s, want %s", bill.BillNumber, wantNum)
		}
	}
}

func TestCreateBillUdhaarLedgerEntry(t *testing.T) {
	udhaar := newFakeUdhaar()
	svc := newTestService(newFakeStock(), newFakeBills(), udhaar)

	bill, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Suresh",
		CustomerPhone: "9876500000",
		Items:         []models.LineItemRequest{goldItem("10", "6000", nil)},
		PaymentMode:   models.PaymentUdhaar,
		PaidAmount:    dec("20000"),
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}

	if bill.Status != models.StatusPartial {
		t.Errorf("status = %s, want Partial", bill.Status)
	}
	if !bill.RemainingAmount.Equal(dec("45000")) {
		t.Errorf("remaining = %s, want 45000", bill.RemainingAmount)
	}

	rec, err := udhaar.GetByPhone(context.Background(), 1, "9876500000")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if !rec.TotalRemaining.Equal(dec("45000")) {
		t.Errorf("ledger balance = %s, want 45000", rec.TotalRemaining)
	}
	if len(rec.Bills) != 1 || rec.Bills[0].BillNumber != bill.BillNumber {
		t.Errorf("ledger entries = %+v, want one entry for %s", rec.Bills, bill.BillNumber)
	}

	// Pay it off FIFO and the record settles.
	rec, err = svc.RecordCreditPayment(context.Background(), 1, "9876500000", dec("45000"))
	if err != nil {
		t.Fatalf("RecordCreditPayment: %v", err)
	}
	if !rec.Settled() {
		t.Errorf("balance after full payment = %s, want 0", rec.TotalRemaining)
	}
}

func TestCreateBillConcurrentStockRace(t *testing.T) {
	stock := newFakeStock()
	stock.add(7, models.MaterialGold, "10")
	svc := newTestService(stock, newFakeBills(), newFakeUdhaar())

	stockID := int64(7)
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
				CustomerName:  "Ramesh",
				CustomerPhone: "9876543210",
				Items:         []models.LineItemRequest{goldItem("6", "6000", &stockID)},
				PaymentMode:   models.PaymentFull,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case billing.IsKind(err, billing.KindInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Errorf("got %d successes and %d stock failures, want 1 and 1", ok, insufficient)
	}
	if got := stock.weight(7); !got.Equal(dec("4")) {
		t.Errorf("final stock = %s, want 4", got)
	}
}

func TestCreateBillRestoresStockWhenPersistFails(t *testing.T) {
	stock := newFakeStock()
	stock.add(7, models.MaterialGold, "10")
	bills := newFakeBills()
	bills.createErr = errors.New("connection reset")
	svc := newTestService(stock, bills, newFakeUdhaar())

	stockID := int64(7)
	_, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Ramesh",
		CustomerPhone: "9876543210",
		Items:         []models.LineItemRequest{goldItem("6", "6000", &stockID)},
		PaymentMode:   models.PaymentFull,
	})
	if err == nil {
		t.Fatal("CreateBill succeeded, want persistence error")
	}
	if got := stock.weight(7); !got.Equal(dec("10")) {
		t.Errorf("stock after failed bill = %s, want 10 (restored)", got)
	}
}

func TestCreateBillRejectsMaterialMismatch(t *testing.T) {
	stock := newFakeStock()
	stock.add(7, models.MaterialSilver, "100")
	svc := newTestService(stock, newFakeBills(), newFakeUdhaar())

	stockID := int64(7)
	_, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Ramesh",
		CustomerPhone: "9876543210",
		Items:         []models.LineItemRequest{goldItem("6", "6000", &stockID)},
		PaymentMode:   models.PaymentFull,
	})
	if !billing.IsKind(err, billing.KindValidation) {
		t.Fatalf("err = %v, want validation error for material mismatch", err)
	}
}

func TestCreateBillRetriesCreditEntry(t *testing.T) {
	udhaar := newFakeUdhaar()
	udhaar.creditErr = errors.New("deadlock detected")
	udhaar.failures = 2 // third attempt succeeds
	svc := newTestService(newFakeStock(), newFakeBills(), udhaar)

	_, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Suresh",
		CustomerPhone: "9876500000",
		Items:         []models.LineItemRequest{goldItem("10", "6000", nil)},
		PaymentMode:   models.PaymentUdhaar,
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}

	rec, err := udhaar.GetByPhone(context.Background(), 1, "9876500000")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if !rec.TotalRemaining.Equal(dec("65000")) {
		t.Errorf("ledger balance = %s, want 65000", rec.TotalRemaining)
	}
}

func TestCreateBillValidation(t *testing.T) {
	svc := newTestService(newFakeStock(), newFakeBills(), newFakeUdhaar())

	tests := []struct {
		name string
		req  models.CreateBillRequest
	}{
		{"missing name", models.CreateBillRequest{
			CustomerPhone: "9876543210",
			Items:         []models.LineItemRequest{goldItem("1", "6000", nil)},
			PaymentMode:   models.PaymentFull,
		}},
		{"short phone", models.CreateBillRequest{
			CustomerName:  "Ramesh",
			CustomerPhone: "12345",
			Items:         []models.LineItemRequest{goldItem("1", "6000", nil)},
			PaymentMode:   models.PaymentFull,
		}},
		{"no items", models.CreateBillRequest{
			CustomerName:  "Ramesh",
			CustomerPhone: "9876543210",
			PaymentMode:   models.PaymentFull,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBill(context.Background(), 1, &tt.req)
			if !billing.IsKind(err, billing.KindValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestRecordBillPayment(t *testing.T) {
	bills := newFakeBills()
	svc := newTestService(newFakeStock(), bills, newFakeUdhaar())

	created, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Suresh",
		CustomerPhone: "9876500000",
		Items:         []models.LineItemRequest{goldItem("10", "6000", nil)},
		PaymentMode:   models.PaymentUdhaar,
		PaidAmount:    dec("20000"),
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}

	bill, err := svc.RecordBillPayment(context.Background(), 1, created.ID, dec("45000"))
	if err != nil {
		t.Fatalf("RecordBillPayment: %v", err)
	}
	if bill.Status != models.StatusPaid || !bill.RemainingAmount.IsZero() {
		t.Errorf("status = %s, remaining = %s, want Paid and 0", bill.Status, bill.RemainingAmount)
	}

	// Overpayment on the bill is rejected.
	if _, err := svc.RecordBillPayment(context.Background(), 1, created.ID, dec("1")); !billing.IsKind(err, billing.KindInvalidAmount) {
		t.Errorf("err = %v, want invalid amount", err)
	}
}

func (f *fakeUdhaar) hasEntry(billID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		for _, b := range rec.Bills {
			if b.BillID == billID {
				return true
			}
		}
	}
	return false
}

// orphanLister pairs the two fakes the way the SQL join does: udhaar bills
// that still owe money and have no ledger entry.
type orphanLister struct {
	bills  *fakeBills
	udhaar *fakeUdhaar
}

func (o orphanLister) ListMissingCreditEntries(_ context.Context) ([]models.Bill, error) {
	o.bills.mu.Lock()
	defer o.bills.mu.Unlock()
	var out []models.Bill
	for _, bill := range o.bills.bills {
		if bill.PaymentMode != models.PaymentUdhaar || !bill.RemainingAmount.IsPositive() {
			continue
		}
		if o.udhaar.hasEntry(bill.ID) {
			continue
		}
		out = append(out, *bill)
	}
	return out, nil
}

func TestCreateBillCreditEntryHealedByReconciler(t *testing.T) {
	udhaar := newFakeUdhaar()
	udhaar.creditErr = errors.New("connection refused")
	udhaar.failures = 3 // every inline attempt fails
	bills := newFakeBills()
	svc := newTestService(newFakeStock(), bills, udhaar)

	bill, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
		CustomerName:  "Suresh",
		CustomerPhone: "9876500000",
		Items:         []models.LineItemRequest{goldItem("10", "6000", nil)},
		PaymentMode:   models.PaymentUdhaar,
		PaidAmount:    dec("20000"),
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if !bill.RemainingAmount.Equal(dec("45000")) {
		t.Fatalf("remaining = %s, want 45000", bill.RemainingAmount)
	}

	// The bill persisted but the ledger is behind.
	if _, err := udhaar.GetByPhone(context.Background(), 1, "9876500000"); !billing.IsKind(err, billing.KindNotFound) {
		t.Fatalf("ledger lookup = %v, want not found", err)
	}

	reconciler := NewLedgerReconciler(orphanLister{bills: bills, udhaar: udhaar}, udhaar, time.Minute)
	if n := reconciler.Reconcile(context.Background()); n != 1 {
		t.Fatalf("reconciled %d entries, want 1", n)
	}

	rec, err := udhaar.GetByPhone(context.Background(), 1, "9876500000")
	if err != nil {
		t.Fatalf("GetByPhone after reconcile: %v", err)
	}
	if !rec.TotalRemaining.Equal(dec("45000")) {
		t.Errorf("ledger balance = %s, want 45000", rec.TotalRemaining)
	}

	// A second sweep finds nothing left to do.
	if n := reconciler.Reconcile(context.Background()); n != 0 {
		t.Errorf("second sweep reconciled %d entries, want 0", n)
	}
}

func TestCreateBillConcurrentNumbers(t *testing.T) {
	svc := newTestService(newFakeStock(), newFakeBills(), newFakeUdhaar())

	const n = 8
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bill, err := svc.CreateBill(context.Background(), 1, &models.CreateBillRequest{
				CustomerName:  "Ramesh",
				CustomerPhone: "9876543210",
				Items:         []models.LineItemRequest{goldItem("1", "6000", nil)},
				PaymentMode:   models.PaymentFull,
			})
			if err != nil {
				t.Errorf("CreateBill: %v", err)
				return
			}
			numbers <- bill.BillNumber
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for num := range numbers {
		if seen[num] {
			t.Errorf("duplicate bill number %s", num)
		}
		seen[num] = true
	}
	for i := 1; i <= n; i++ {
		want := fmt.Sprintf("BILL-2407-%03d", i)
		if !seen[want] {
			t.Errorf("missing bill number %s", want)
		}
	}
}
