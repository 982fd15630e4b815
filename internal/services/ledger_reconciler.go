package services

import (
	"context"
	"log"
	"sync"
	"time"

	"sunar-backend/internal/models"
)

// MissingCreditLister finds udhaar bills that still owe money but have no
// entry in the credit ledger.
type MissingCreditLister interface {
	ListMissingCreditEntries(ctx context.Context) ([]models.Bill, error)
}

// CreditRecorder is the slice of the udhaar store the reconciler needs.
type CreditRecorder interface {
	RecordCredit(ctx context.Context, ownerID int64, bill *models.Bill) error
}

// LedgerReconciler replays udhaar entries that could not be recorded when
// their bill was created. CreateBill retries inline first; anything it gives
// up on stays an orphaned bill until a reconciler sweep lands it, so the
// ledger always catches up with the bills table.
type LedgerReconciler struct {
	Bills  MissingCreditLister
	Udhaar CreditRecorder

	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewLedgerReconciler(bills MissingCreditLister, udhaar CreditRecorder, interval time.Duration) *LedgerReconciler {
	return &LedgerReconciler{
		Bills:    bills,
		Udhaar:   udhaar,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the reconciliation loop. The first sweep runs immediately so
// a restart heals entries orphaned before the crash.
func (r *LedgerReconciler) Start() {
	log.Printf("[Reconciler] starting, sweeping every %s", r.interval)

	r.Reconcile(context.Background())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Reconcile(context.Background())
			case <-r.stopChan:
				return
			}
		}
	}()
}

func (r *LedgerReconciler) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}

// Reconcile runs one sweep and returns how many entries it recorded. A bill
// that fails again simply stays orphaned for the next sweep.
func (r *LedgerReconciler) Reconcile(ctx context.Context) int {
	orphaned, err := r.Bills.ListMissingCreditEntries(ctx)
	if err != nil {
		log.Printf("[Reconciler] failed to list orphaned bills: %v", err)
		return 0
	}

	recorded := 0
	for i := range orphaned {
		bill := &orphaned[i]
		if err := r.Udhaar.RecordCredit(ctx, bill.OwnerID, bill); err != nil {
			log.Printf("[Reconciler] udhaar entry for bill %s still failing: %v", bill.BillNumber, err)
			continue
		}
		log.Printf("[Reconciler] recorded udhaar entry for bill %s", bill.BillNumber)
		recorded++
	}
	return recorded
}
