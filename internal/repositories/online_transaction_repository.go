package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
)

type OnlineTransactionRepository struct {
	DB *pgxpool.Pool
}

func NewOnlineTransactionRepository(db *pgxpool.Pool) *OnlineTransactionRepository {
	return &OnlineTransactionRepository{DB: db}
}

func (r *OnlineTransactionRepository) Create(ctx context.Context, txn *models.OnlineTransaction) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO online_transactions (
			owner_id, razorpay_order_id, customer_name, customer_phone, amount, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, txn.OwnerID, txn.OrderID, txn.CustomerName, txn.CustomerPhone,
		txn.Amount, txn.Status).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create online transaction: %w", err)
	}
	return nil
}

func (r *OnlineTransactionRepository) GetByOrderID(ctx context.Context, ownerID int64, orderID string) (*models.OnlineTransaction, error) {
	txn := &models.OnlineTransaction{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, owner_id, razorpay_order_id, razorpay_payment_id, customer_name,
		       customer_phone, amount, status, failure_reason, created_at, updated_at
		FROM online_transactions
		WHERE owner_id = $1 AND razorpay_order_id = $2
	`, ownerID, orderID).Scan(
		&txn.ID, &txn.OwnerID, &txn.OrderID, &txn.PaymentID, &txn.CustomerName,
		&txn.CustomerPhone, &txn.Amount, &txn.Status, &txn.FailureReason,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("online transaction %s not found", orderID)
		}
		return nil, err
	}
	return txn, nil
}

func (r *OnlineTransactionRepository) MarkSuccess(ctx context.Context, id int64, paymentID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE online_transactions
		SET status = 'success', razorpay_payment_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, paymentID)
	if err != nil {
		return fmt.Errorf("failed to update online transaction: %w", err)
	}
	return nil
}

func (r *OnlineTransactionRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE online_transactions
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to update online transaction: %w", err)
	}
	return nil
}

func (r *OnlineTransactionRepository) List(ctx context.Context, ownerID int64, limit int) ([]models.OnlineTransaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, owner_id, razorpay_order_id, razorpay_payment_id, customer_name,
		       customer_phone, amount, status, failure_reason, created_at, updated_at
		FROM online_transactions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.OnlineTransaction
	for rows.Next() {
		var txn models.OnlineTransaction
		err := rows.Scan(
			&txn.ID, &txn.OwnerID, &txn.OrderID, &txn.PaymentID, &txn.CustomerName,
			&txn.CustomerPhone, &txn.Amount, &txn.Status, &txn.FailureReason,
			&txn.CreatedAt, &txn.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
