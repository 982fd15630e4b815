package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
	"sunar-backend/internal/timeutil"
)

type BillRepository struct {
	DB *pgxpool.Pool
}

func NewBillRepository(db *pgxpool.Pool) *BillRepository {
	return &BillRepository{DB: db}
}

// NextBillNumber assigns the next BILL-YYMM-NNN number for this owner in the
// bill date's month, starting at 001. The single-row upsert bumps the
// per-(owner, period) counter atomically, so concurrent bill creations get
// distinct, strictly increasing numbers. The bump commits on its own; a bill
// that fails to persist afterwards leaves a gap in the sequence.
func (r *BillRepository) NextBillNumber(ctx context.Context, ownerID int64, at time.Time) (string, error) {
	period := timeutil.BillPeriod(at)

	var seq int
	err := r.DB.QueryRow(ctx, `
		INSERT INTO bill_sequences (owner_id, period, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (owner_id, period)
		DO UPDATE SET last_seq = bill_sequences.last_seq + 1
		RETURNING last_seq
	`, ownerID, period).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to get next bill number: %w", err)
	}

	return fmt.Sprintf("BILL-%s-%03d", period, seq), nil
}

// Create persists the bill with its items, old jewelry and the creation-time
// payment (if any) in one transaction.
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO bills (
			owner_id, bill_number, bill_date, customer_name, customer_phone, customer_address,
			is_gst_bill, igst, sgst, subtotal, discount, old_jewelry_total, grand_total,
			payment_mode, paid_amount, remaining_amount, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at
	`,
		bill.OwnerID, bill.BillNumber, bill.BillDate,
		bill.CustomerName, bill.CustomerPhone, bill.CustomerAddress,
		bill.IsGSTBill, bill.IGST, bill.SGST,
		bill.Subtotal, bill.Discount, bill.OldJewelryTotal, bill.GrandTotal,
		bill.PaymentMode, bill.PaidAmount, bill.RemainingAmount, bill.Status,
	).Scan(&bill.ID, &bill.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	for i := range bill.Items {
		item := &bill.Items[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO bill_items (
				bill_id, material, item_name, category, weight, price_per_gram,
				making_charge_mode, making_charge_value, making_charges, stock_entry_id, total
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`,
			bill.ID, item.Material, item.ItemName, item.Category,
			item.Weight, item.PricePerGram,
			item.MakingCharge.Mode, item.MakingCharge.Value, item.MakingCharges,
			item.StockEntryID, item.Total,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create bill item: %w", err)
		}
	}

	for i := range bill.OldJewelry {
		old := &bill.OldJewelry[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO old_jewelry_items (bill_id, material, weight, price_per_gram, total)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, bill.ID, old.Material, old.Weight, old.PricePerGram, old.Total).Scan(&old.ID)
		if err != nil {
			return fmt.Errorf("failed to create old jewelry item: %w", err)
		}
	}

	if bill.PaidAmount.IsPositive() {
		payment := models.Payment{Amount: bill.PaidAmount}
		err = tx.QueryRow(ctx, `
			INSERT INTO bill_payments (bill_id, amount, paid_at)
			VALUES ($1, $2, $3)
			RETURNING id, paid_at
		`, bill.ID, payment.Amount, bill.BillDate).Scan(&payment.ID, &payment.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to record creation payment: %w", err)
		}
		bill.Payments = append(bill.Payments, payment)
	}

	return tx.Commit(ctx)
}

const billColumns = `id, owner_id, bill_number, bill_date, customer_name, customer_phone,
	COALESCE(customer_address, ''), is_gst_bill, igst, sgst, subtotal, discount,
	old_jewelry_total, grand_total, payment_mode, paid_amount, remaining_amount, status, created_at`

func scanBill(row pgx.Row) (*models.Bill, error) {
	bill := &models.Bill{}
	err := row.Scan(
		&bill.ID, &bill.OwnerID, &bill.BillNumber, &bill.BillDate,
		&bill.CustomerName, &bill.CustomerPhone, &bill.CustomerAddress,
		&bill.IsGSTBill, &bill.IGST, &bill.SGST, &bill.Subtotal, &bill.Discount,
		&bill.OldJewelryTotal, &bill.GrandTotal, &bill.PaymentMode,
		&bill.PaidAmount, &bill.RemainingAmount, &bill.Status, &bill.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// Get returns the bill with items, old jewelry and payment trail, scoped to
// the owner.
func (r *BillRepository) Get(ctx context.Context, ownerID, id int64) (*models.Bill, error) {
	query := fmt.Sprintf(`SELECT %s FROM bills WHERE id = $1 AND owner_id = $2`, billColumns)

	bill, err := scanBill(r.DB.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("bill %d not found", id)
		}
		return nil, err
	}

	if err := r.loadChildren(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

func (r *BillRepository) loadChildren(ctx context.Context, bill *models.Bill) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, material, item_name, COALESCE(category, ''), weight, price_per_gram,
		       making_charge_mode, making_charge_value, making_charges, stock_entry_id, total
		FROM bill_items WHERE bill_id = $1 ORDER BY id
	`, bill.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.LineItem
		err := rows.Scan(
			&item.ID, &item.Material, &item.ItemName, &item.Category,
			&item.Weight, &item.PricePerGram,
			&item.MakingCharge.Mode, &item.MakingCharge.Value, &item.MakingCharges,
			&item.StockEntryID, &item.Total,
		)
		if err != nil {
			return err
		}
		bill.Items = append(bill.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	oldRows, err := r.DB.Query(ctx, `
		SELECT id, material, weight, price_per_gram, total
		FROM old_jewelry_items WHERE bill_id = $1 ORDER BY id
	`, bill.ID)
	if err != nil {
		return err
	}
	defer oldRows.Close()

	for oldRows.Next() {
		var old models.OldJewelryItem
		if err := oldRows.Scan(&old.ID, &old.Material, &old.Weight, &old.PricePerGram, &old.Total); err != nil {
			return err
		}
		bill.OldJewelry = append(bill.OldJewelry, old)
	}
	if err := oldRows.Err(); err != nil {
		return err
	}

	payRows, err := r.DB.Query(ctx, `
		SELECT id, amount, paid_at
		FROM bill_payments WHERE bill_id = $1 ORDER BY paid_at, id
	`, bill.ID)
	if err != nil {
		return err
	}
	defer payRows.Close()

	for payRows.Next() {
		var p models.Payment
		if err := payRows.Scan(&p.ID, &p.Amount, &p.PaidAt); err != nil {
			return err
		}
		bill.Payments = append(bill.Payments, p)
	}
	return payRows.Err()
}

// List returns the owner's bills, newest first, without child rows.
func (r *BillRepository) List(ctx context.Context, ownerID int64, limit, offset int) ([]models.Bill, error) {
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT %s FROM bills
		WHERE owner_id = $1
		ORDER BY bill_date DESC, id DESC
		LIMIT $2 OFFSET $3
	`, billColumns)

	rows, err := r.DB.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *bill)
	}
	return bills, rows.Err()
}

// ListMissingCreditEntries returns udhaar bills, across all owners, that
// still owe money but have no entry in the credit ledger. The reconciler
// replays these until each one lands.
func (r *BillRepository) ListMissingCreditEntries(ctx context.Context) ([]models.Bill, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bills
		WHERE payment_mode = $1
		  AND remaining_amount > 0
		  AND NOT EXISTS (SELECT 1 FROM udhaar_bills u WHERE u.bill_id = bills.id)
		ORDER BY id
	`, billColumns)

	rows, err := r.DB.Query(ctx, query, string(models.PaymentUdhaar))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *bill)
	}
	return bills, rows.Err()
}

// RecordPayment applies a single-bill payment: it appends to the bill's
// payment trail and recomputes paid/remaining/status. For an udhaar bill the
// matching ledger entry and the record's running balance are updated in the
// same transaction so the ledger invariant keeps holding.
//
// This is distinct from the customer-level udhaar payment, which allocates
// FIFO across all of a customer's outstanding bills.
func (r *BillRepository) RecordPayment(ctx context.Context, ownerID, billID int64, amount decimal.Decimal) (*models.Bill, error) {
	if !amount.IsPositive() {
		return nil, billing.InvalidAmountf("payment amount %s must be greater than zero", amount.StringFixed(2))
	}

	var bill *models.Bill
	var err error
	for attempt := 0; ; attempt++ {
		bill, err = r.recordPaymentTx(ctx, ownerID, billID, amount)
		if err == nil || attempt == 2 || !isDeadlock(err) {
			break
		}
		log.Printf("[BillRepo] payment on bill %d hit a deadlock, retrying: %v", billID, err)
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

func (r *BillRepository) recordPaymentTx(ctx context.Context, ownerID, billID int64, amount decimal.Decimal) (*models.Bill, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock order must match ApplyPayment: udhaar record first, then bill
	// rows. The mode and phone never change, so the unlocked read is safe.
	var mode models.PaymentMode
	var phone string
	err = tx.QueryRow(ctx,
		"SELECT payment_mode, customer_phone FROM bills WHERE id = $1 AND owner_id = $2",
		billID, ownerID).Scan(&mode, &phone)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("bill %d not found", billID)
		}
		return nil, err
	}
	if mode == models.PaymentUdhaar {
		var recordID int64
		err = tx.QueryRow(ctx, `
			SELECT id FROM udhaar_records
			WHERE owner_id = $1 AND customer_phone = $2
			FOR UPDATE
		`, ownerID, phone).Scan(&recordID)
		if err != nil && err != pgx.ErrNoRows {
			return nil, err
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM bills WHERE id = $1 AND owner_id = $2 FOR UPDATE`, billColumns)
	bill, err := scanBill(tx.QueryRow(ctx, query, billID, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("bill %d not found", billID)
		}
		return nil, err
	}

	if amount.GreaterThan(bill.RemainingAmount) {
		return nil, billing.InvalidAmountf("payment %s exceeds remaining amount %s on bill %s",
			amount.StringFixed(2), bill.RemainingAmount.StringFixed(2), bill.BillNumber)
	}

	now := timeutil.Now()
	if _, err := tx.Exec(ctx,
		"INSERT INTO bill_payments (bill_id, amount, paid_at) VALUES ($1, $2, $3)",
		billID, amount, now); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	bill.PaidAmount = bill.PaidAmount.Add(amount)
	bill.RemainingAmount = bill.GrandTotal.Sub(bill.PaidAmount)
	if bill.RemainingAmount.IsZero() {
		bill.Status = models.StatusPaid
	} else {
		bill.Status = models.StatusPartial
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bills SET paid_amount = $2, remaining_amount = $3, status = $4 WHERE id = $1
	`, billID, bill.PaidAmount, bill.RemainingAmount, bill.Status); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	if bill.PaymentMode == models.PaymentUdhaar {
		if err := mirrorBillPaymentToLedger(ctx, tx, ownerID, bill, amount, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return bill, nil
}

// isDeadlock reports whether err is a Postgres deadlock abort (40P01),
// which happens when two payments for the same customer collide. The
// aborted transaction is safe to retry.
func isDeadlock(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40P01"
}

// mirrorBillPaymentToLedger updates the udhaar entry that snapshots this
// bill, keeping total_remaining == sum of entry remaining amounts.
func mirrorBillPaymentToLedger(ctx context.Context, tx pgx.Tx, ownerID int64, bill *models.Bill, amount decimal.Decimal, at time.Time) error {
	var recordID int64
	var totalRemaining decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT id, total_remaining FROM udhaar_records
		WHERE owner_id = $1 AND customer_phone = $2
		FOR UPDATE
	`, ownerID, bill.CustomerPhone).Scan(&recordID, &totalRemaining)
	if err != nil {
		if err == pgx.ErrNoRows {
			return billing.Consistencyf("udhaar record missing for customer %s on bill %s", bill.CustomerPhone, bill.BillNumber)
		}
		return err
	}

	var udhaarBillID int64
	var entryRemaining decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT id, remaining_amount FROM udhaar_bills
		WHERE udhaar_record_id = $1 AND bill_id = $2
		FOR UPDATE
	`, recordID, bill.ID).Scan(&udhaarBillID, &entryRemaining)
	if err != nil {
		if err == pgx.ErrNoRows {
			return billing.Consistencyf("udhaar entry missing for bill %s", bill.BillNumber)
		}
		return err
	}

	if amount.GreaterThan(entryRemaining) {
		return billing.Consistencyf("ledger entry for bill %s diverges from the bill: entry remaining %s, payment %s",
			bill.BillNumber, entryRemaining.StringFixed(2), amount.StringFixed(2))
	}

	if _, err := tx.Exec(ctx, `
		UPDATE udhaar_bills
		SET paid_amount = paid_amount + $2, remaining_amount = remaining_amount - $2
		WHERE id = $1
	`, udhaarBillID, amount); err != nil {
		return fmt.Errorf("failed to update udhaar entry: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO udhaar_payments (udhaar_bill_id, amount, paid_at) VALUES ($1, $2, $3)",
		udhaarBillID, amount, at); err != nil {
		return fmt.Errorf("failed to record udhaar payment: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE udhaar_records SET total_remaining = total_remaining - $2 WHERE id = $1",
		recordID, amount); err != nil {
		return fmt.Errorf("failed to update udhaar balance: %w", err)
	}

	return verifyLedgerInvariant(ctx, tx, recordID)
}

// verifyLedgerInvariant re-checks total_remaining == SUM(remaining_amount)
// inside the transaction. Divergence aborts the operation; it is never
// silently patched.
func verifyLedgerInvariant(ctx context.Context, tx pgx.Tx, recordID int64) error {
	var diverged bool
	err := tx.QueryRow(ctx, `
		SELECT r.total_remaining <> COALESCE(SUM(b.remaining_amount), 0)
		FROM udhaar_records r
		LEFT JOIN udhaar_bills b ON b.udhaar_record_id = r.id
		WHERE r.id = $1
		GROUP BY r.total_remaining
	`, recordID).Scan(&diverged)
	if err != nil {
		return err
	}
	if diverged {
		return billing.Consistencyf("udhaar record %d: running balance diverges from sum of entries", recordID)
	}
	return nil
}
