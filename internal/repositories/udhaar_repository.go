package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
	"sunar-backend/internal/timeutil"
)

type UdhaarRepository struct {
	DB *pgxpool.Pool
}

func NewUdhaarRepository(db *pgxpool.Pool) *UdhaarRepository {
	return &UdhaarRepository{DB: db}
}

// RecordCredit adds a bill entry to the customer's udhaar record, creating
// the record on first credit. The entry snapshots the bill's totals at
// creation time; the record's running balance grows by the bill's remaining
// amount.
func (r *UdhaarRepository) RecordCredit(ctx context.Context, ownerID int64, bill *models.Bill) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var recordID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO udhaar_records (owner_id, customer_name, customer_phone, total_remaining)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (owner_id, customer_phone)
		DO UPDATE SET customer_name = EXCLUDED.customer_name
		RETURNING id
	`, ownerID, bill.CustomerName, bill.CustomerPhone).Scan(&recordID)
	if err != nil {
		return fmt.Errorf("failed to upsert udhaar record: %w", err)
	}

	var entryID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO udhaar_bills (
			udhaar_record_id, bill_id, bill_number, total_amount,
			paid_amount, remaining_amount, bill_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, recordID, bill.ID, bill.BillNumber, bill.GrandTotal,
		bill.PaidAmount, bill.RemainingAmount, bill.BillDate).Scan(&entryID)
	if err != nil {
		return fmt.Errorf("failed to create udhaar entry: %w", err)
	}

	if bill.PaidAmount.IsPositive() {
		if _, err := tx.Exec(ctx,
			"INSERT INTO udhaar_payments (udhaar_bill_id, amount, paid_at) VALUES ($1, $2, $3)",
			entryID, bill.PaidAmount, bill.BillDate); err != nil {
			return fmt.Errorf("failed to record creation payment: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE udhaar_records SET total_remaining = total_remaining + $2 WHERE id = $1",
		recordID, bill.RemainingAmount); err != nil {
		return fmt.Errorf("failed to update udhaar balance: %w", err)
	}

	return tx.Commit(ctx)
}

// ApplyPayment takes a customer-level payment and spreads it oldest bill
// first across the customer's outstanding entries. The record row is locked
// for the whole allocation, so two concurrent payments for the same customer
// serialize and each sees the balance the other left behind.
func (r *UdhaarRepository) ApplyPayment(ctx context.Context, ownerID int64, customerPhone string, amount decimal.Decimal) (*models.UdhaarRecord, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var recordID int64
	var totalRemaining decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT id, total_remaining FROM udhaar_records
		WHERE owner_id = $1 AND customer_phone = $2
		FOR UPDATE
	`, ownerID, customerPhone).Scan(&recordID, &totalRemaining)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("no udhaar record for customer %s", customerPhone)
		}
		return nil, err
	}

	entries, err := loadUdhaarEntries(ctx, tx, recordID)
	if err != nil {
		return nil, err
	}

	allocations, err := billing.AllocatePayment(entries, amount)
	if err != nil {
		return nil, err
	}

	now := timeutil.Now()
	for _, alloc := range allocations {
		if _, err := tx.Exec(ctx, `
			UPDATE udhaar_bills
			SET paid_amount = paid_amount + $2, remaining_amount = remaining_amount - $2
			WHERE id = $1
		`, alloc.UdhaarBillID, alloc.Amount); err != nil {
			return nil, fmt.Errorf("failed to update udhaar entry: %w", err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO udhaar_payments (udhaar_bill_id, amount, paid_at) VALUES ($1, $2, $3)",
			alloc.UdhaarBillID, alloc.Amount, now); err != nil {
			return nil, fmt.Errorf("failed to record udhaar payment: %w", err)
		}

		// Mirror to the bill so bill detail and ledger agree.
		if _, err := tx.Exec(ctx, `
			UPDATE bills
			SET paid_amount = paid_amount + $2,
			    remaining_amount = remaining_amount - $2,
			    status = CASE WHEN remaining_amount - $2 = 0 THEN 'Paid' ELSE 'Partial' END
			WHERE id = $1
		`, alloc.BillID, alloc.Amount); err != nil {
			return nil, fmt.Errorf("failed to update bill: %w", err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO bill_payments (bill_id, amount, paid_at) VALUES ($1, $2, $3)",
			alloc.BillID, alloc.Amount, now); err != nil {
			return nil, fmt.Errorf("failed to record bill payment: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE udhaar_records SET total_remaining = total_remaining - $2 WHERE id = $1",
		recordID, amount); err != nil {
		return nil, fmt.Errorf("failed to update udhaar balance: %w", err)
	}

	if err := verifyLedgerInvariant(ctx, tx, recordID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetByPhone(ctx, ownerID, customerPhone)
}

func loadUdhaarEntries(ctx context.Context, tx pgx.Tx, recordID int64) ([]models.UdhaarBill, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, bill_id, bill_number, total_amount, paid_amount, remaining_amount, bill_date
		FROM udhaar_bills
		WHERE udhaar_record_id = $1
		ORDER BY bill_date, id
		FOR UPDATE
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.UdhaarBill
	for rows.Next() {
		var e models.UdhaarBill
		err := rows.Scan(&e.ID, &e.BillID, &e.BillNumber,
			&e.TotalAmount, &e.PaidAmount, &e.RemainingAmount, &e.BillDate)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListOutstanding returns customers who still owe, largest balance first.
func (r *UdhaarRepository) ListOutstanding(ctx context.Context, ownerID int64) ([]models.UdhaarRecord, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, owner_id, customer_name, customer_phone, total_remaining, created_at
		FROM udhaar_records
		WHERE owner_id = $1 AND total_remaining > 0
		ORDER BY total_remaining DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.UdhaarRecord
	for rows.Next() {
		var rec models.UdhaarRecord
		err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.CustomerName,
			&rec.CustomerPhone, &rec.TotalRemaining, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByPhone returns the customer's full ledger: every bill entry with its
// payment trail, oldest bill first.
func (r *UdhaarRepository) GetByPhone(ctx context.Context, ownerID int64, customerPhone string) (*models.UdhaarRecord, error) {
	rec := &models.UdhaarRecord{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, owner_id, customer_name, customer_phone, total_remaining, created_at
		FROM udhaar_records
		WHERE owner_id = $1 AND customer_phone = $2
	`, ownerID, customerPhone).Scan(&rec.ID, &rec.OwnerID, &rec.CustomerName,
		&rec.CustomerPhone, &rec.TotalRemaining, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("no udhaar record for customer %s", customerPhone)
		}
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, bill_id, bill_number, total_amount, paid_amount, remaining_amount, bill_date
		FROM udhaar_bills
		WHERE udhaar_record_id = $1
		ORDER BY bill_date, id
	`, rec.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e models.UdhaarBill
		err := rows.Scan(&e.ID, &e.BillID, &e.BillNumber,
			&e.TotalAmount, &e.PaidAmount, &e.RemainingAmount, &e.BillDate)
		if err != nil {
			return nil, err
		}
		rec.Bills = append(rec.Bills, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rec.Bills {
		entry := &rec.Bills[i]
		payRows, err := r.DB.Query(ctx, `
			SELECT id, amount, paid_at
			FROM udhaar_payments WHERE udhaar_bill_id = $1 ORDER BY paid_at, id
		`, entry.ID)
		if err != nil {
			return nil, err
		}
		for payRows.Next() {
			var p models.Payment
			if err := payRows.Scan(&p.ID, &p.Amount, &p.PaidAt); err != nil {
				payRows.Close()
				return nil, err
			}
			entry.Payments = append(entry.Payments, p)
		}
		if err := payRows.Err(); err != nil {
			payRows.Close()
			return nil, err
		}
		payRows.Close()
	}

	return rec, nil
}
