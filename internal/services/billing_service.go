package services

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/cache"
	"sunar-backend/internal/metrics"
	"sunar-backend/internal/models"
	"sunar-backend/internal/timeutil"
)

// StockStore is the slice of the stock repository the orchestrator needs.
type StockStore interface {
	CheckAvailability(ctx context.Context, ownerID, id int64, required decimal.Decimal) (*models.StockEntry, error)
	Decrement(ctx context.Context, ownerID, id int64, amount decimal.Decimal) error
	Restore(ctx context.Context, ownerID, id int64, amount decimal.Decimal) error
}

type BillStore interface {
	NextBillNumber(ctx context.Context, ownerID int64, at time.Time) (string, error)
	Create(ctx context.Context, bill *models.Bill) error
	Get(ctx context.Context, ownerID, id int64) (*models.Bill, error)
	List(ctx context.Context, ownerID int64, limit, offset int) ([]models.Bill, error)
	RecordPayment(ctx context.Context, ownerID, billID int64, amount decimal.Decimal) (*models.Bill, error)
}

type UdhaarStore interface {
	RecordCredit(ctx context.Context, ownerID int64, bill *models.Bill) error
	ApplyPayment(ctx context.Context, ownerID int64, customerPhone string, amount decimal.Decimal) (*models.UdhaarRecord, error)
	ListOutstanding(ctx context.Context, ownerID int64) ([]models.UdhaarRecord, error)
	GetByPhone(ctx context.Context, ownerID int64, customerPhone string) (*models.UdhaarRecord, error)
}

// BillingService runs the create-bill pipeline and routes payments to the
// right ledger. It owns no money math itself; pricing, aggregation and
// allocation live in the billing package.
type BillingService struct {
	StockRepo  StockStore
	BillRepo   BillStore
	UdhaarRepo UdhaarStore

	now func() time.Time
}

func NewBillingService(stockRepo StockStore, billRepo BillStore, udhaarRepo UdhaarStore) *BillingService {
	return &BillingService{
		StockRepo:  stockRepo,
		BillRepo:   billRepo,
		UdhaarRepo: udhaarRepo,
		now:        timeutil.Now,
	}
}

// stockClaim is the weight one bill takes from one stock entry.
type stockClaim struct {
	entryID  int64
	material models.Material
	weight   decimal.Decimal
}

// CreateBill prices the items, checks and decrements linked stock, assigns
// the bill number and persists the bill, then records the credit entry for
// udhaar bills. Stock decrements are compensated if a later step fails, so a
// failed bill leaves stock as it was.
func (s *BillingService) CreateBill(ctx context.Context, ownerID int64, req *models.CreateBillRequest) (*models.Bill, error) {
	if req.CustomerName == "" {
		return nil, billing.Validationf("customer name is required")
	}
	if len(req.CustomerPhone) != 10 {
		return nil, billing.Validationf("customer phone must be exactly 10 digits")
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		item, err := billing.PriceItem(itemReq)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	oldJewelry := make([]models.OldJewelryItem, 0, len(req.OldJewelry))
	for _, oldReq := range req.OldJewelry {
		old, err := billing.PriceOldJewelry(oldReq)
		if err != nil {
			return nil, err
		}
		oldJewelry = append(oldJewelry, old)
	}

	totals, err := billing.Aggregate(items, oldJewelry, req.Discount, req.IsGSTBill)
	if err != nil {
		return nil, err
	}

	paid, remaining, status, err := billing.Classify(req.PaymentMode, req.PaidAmount, totals.GrandTotal)
	if err != nil {
		return nil, err
	}

	claims, err := s.claimStock(ctx, ownerID, items)
	if err != nil {
		if billing.IsKind(err, billing.KindInsufficientStock) {
			metrics.InsufficientStockTotal.Inc()
		}
		return nil, err
	}

	billDate := s.now()
	billNumber, err := s.BillRepo.NextBillNumber(ctx, ownerID, billDate)
	if err != nil {
		s.releaseStock(ctx, ownerID, claims)
		return nil, err
	}

	bill := &models.Bill{
		OwnerID:         ownerID,
		BillNumber:      billNumber,
		BillDate:        billDate,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		IsGSTBill:       req.IsGSTBill,
		IGST:            totals.IGST,
		SGST:            totals.SGST,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Discount:        req.Discount,
		OldJewelry:      oldJewelry,
		OldJewelryTotal: totals.OldJewelryTotal,
		GrandTotal:      totals.GrandTotal,
		PaymentMode:     req.PaymentMode,
		PaidAmount:      paid,
		RemainingAmount: remaining,
		Status:          status,
	}

	if err := s.BillRepo.Create(ctx, bill); err != nil {
		s.releaseStock(ctx, ownerID, claims)
		return nil, err
	}

	if bill.PaymentMode == models.PaymentUdhaar {
		s.recordCreditEntry(ctx, ownerID, bill)
		cache.InvalidateOutstanding(ctx, ownerID)
	}

	if len(claims) > 0 {
		cache.InvalidateLowStock(ctx, ownerID)
	}

	metrics.BillsCreatedTotal.WithLabelValues(string(bill.PaymentMode)).Inc()
	return bill, nil
}

// claimStock verifies every linked stock entry can cover the bill before
// decrementing any of them, then decrements one by one, undoing what was
// already taken when a decrement loses the race.
func (s *BillingService) claimStock(ctx context.Context, ownerID int64, items []models.LineItem) ([]stockClaim, error) {
	required := make(map[int64]*stockClaim)
	var order []int64
	for _, item := range items {
		if item.StockEntryID == nil {
			continue
		}
		id := *item.StockEntryID
		if claim, ok := required[id]; ok {
			claim.weight = claim.weight.Add(item.Weight)
			continue
		}
		required[id] = &stockClaim{entryID: id, material: item.Material, weight: item.Weight}
		order = append(order, id)
	}

	for _, id := range order {
		claim := required[id]
		entry, err := s.StockRepo.CheckAvailability(ctx, ownerID, id, claim.weight)
		if err != nil {
			return nil, err
		}
		if entry.Material != claim.material {
			return nil, billing.Validationf("stock entry %d holds %s, item is %s", id, entry.Material, claim.material)
		}
	}

	var taken []stockClaim
	for _, id := range order {
		claim := required[id]
		if err := s.StockRepo.Decrement(ctx, ownerID, id, claim.weight); err != nil {
			s.releaseStock(ctx, ownerID, taken)
			return nil, err
		}
		taken = append(taken, *claim)
	}
	return taken, nil
}

func (s *BillingService) releaseStock(ctx context.Context, ownerID int64, claims []stockClaim) {
	for _, claim := range claims {
		if err := s.StockRepo.Restore(ctx, ownerID, claim.entryID, claim.weight); err != nil {
			log.Printf("[Billing] failed to restore %s to stock entry %d: %v", claim.weight.StringFixed(3), claim.entryID, err)
		}
	}
}

// recordCreditEntry pushes the udhaar entry for a persisted bill, retrying a
// couple of times inline. The bill exists either way; if every inline attempt
// fails the entry is left for the ledger reconciler, which keeps replaying it
// until it lands.
func (s *BillingService) recordCreditEntry(ctx context.Context, ownerID int64, bill *models.Bill) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if err = s.UdhaarRepo.RecordCredit(ctx, ownerID, bill); err == nil {
			return
		}
		log.Printf("[Billing] udhaar entry for bill %s failed (attempt %d): %v", bill.BillNumber, attempt+1, err)
	}
	log.Printf("[Billing] udhaar entry for bill %s deferred to the reconciler: %v", bill.BillNumber, err)
}

func (s *BillingService) GetBill(ctx context.Context, ownerID, billID int64) (*models.Bill, error) {
	return s.BillRepo.Get(ctx, ownerID, billID)
}

func (s *BillingService) ListBills(ctx context.Context, ownerID int64, limit, offset int) ([]models.Bill, error) {
	return s.BillRepo.List(ctx, ownerID, limit, offset)
}

// RecordBillPayment applies a payment to one specific bill.
func (s *BillingService) RecordBillPayment(ctx context.Context, ownerID, billID int64, amount decimal.Decimal) (*models.Bill, error) {
	bill, err := s.BillRepo.RecordPayment(ctx, ownerID, billID, amount)
	if err != nil {
		return nil, err
	}
	if bill.PaymentMode == models.PaymentUdhaar {
		cache.InvalidateOutstanding(ctx, ownerID)
	}
	return bill, nil
}

// RecordCreditPayment applies a customer-level payment FIFO across the
// customer's outstanding udhaar bills.
func (s *BillingService) RecordCreditPayment(ctx context.Context, ownerID int64, customerPhone string, amount decimal.Decimal) (*models.UdhaarRecord, error) {
	record, err := s.UdhaarRepo.ApplyPayment(ctx, ownerID, customerPhone, amount)
	if err != nil {
		return nil, err
	}
	cache.InvalidateOutstanding(ctx, ownerID)
	metrics.UdhaarPaymentsTotal.Inc()
	return record, nil
}
