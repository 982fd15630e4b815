package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
)

type StockRepository struct {
	DB *pgxpool.Pool
}

func NewStockRepository(db *pgxpool.Pool) *StockRepository {
	return &StockRepository{DB: db}
}

const stockColumns = `id, owner_id, item_name, COALESCE(category, ''), material, karat,
	weight, threshold_weight, created_at`

func scanStockEntry(row pgx.Row) (*models.StockEntry, error) {
	entry := &models.StockEntry{}
	err := row.Scan(
		&entry.ID, &entry.OwnerID, &entry.ItemName, &entry.Category,
		&entry.Material, &entry.Karat, &entry.Weight, &entry.ThresholdWeight,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *StockRepository) Create(ctx context.Context, entry *models.StockEntry) error {
	query := `
		INSERT INTO stock_entries (owner_id, item_name, category, material, karat, weight, threshold_weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.DB.QueryRow(ctx, query,
		entry.OwnerID,
		entry.ItemName,
		entry.Category,
		entry.Material,
		entry.Karat,
		entry.Weight,
		entry.ThresholdWeight,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stock entry: %w", err)
	}
	return nil
}

func (r *StockRepository) Get(ctx context.Context, ownerID, id int64) (*models.StockEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_entries WHERE id = $1 AND owner_id = $2`, stockColumns)

	entry, err := scanStockEntry(r.DB.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.NotFoundf("stock entry %d not found", id)
		}
		return nil, err
	}
	return entry, nil
}

func (r *StockRepository) List(ctx context.Context, ownerID int64) ([]models.StockEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_entries WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, stockColumns)

	rows, err := r.DB.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.StockEntry
	for rows.Next() {
		entry, err := scanStockEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// ListLowStock returns the lots that have fallen below their threshold.
func (r *StockRepository) ListLowStock(ctx context.Context, ownerID int64) ([]models.StockEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stock_entries
		WHERE owner_id = $1 AND weight < threshold_weight
		ORDER BY weight ASC
	`, stockColumns)

	rows, err := r.DB.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.StockEntry
	for rows.Next() {
		entry, err := scanStockEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *StockRepository) Update(ctx context.Context, entry *models.StockEntry) error {
	query := `
		UPDATE stock_entries
		SET item_name = $3, category = $4, karat = $5, weight = $6, threshold_weight = $7
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.DB.Exec(ctx, query,
		entry.ID, entry.OwnerID,
		entry.ItemName, entry.Category, entry.Karat, entry.Weight, entry.ThresholdWeight,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.NotFoundf("stock entry %d not found", entry.ID)
	}
	return nil
}

func (r *StockRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.DB.Exec(ctx, "DELETE FROM stock_entries WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete stock entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.NotFoundf("stock entry %d not found", id)
	}
	return nil
}

// CheckAvailability verifies the lot exists under this owner and has at
// least the required weight. The returned entry names the item for error
// messages; the authoritative check is the conditional update in Decrement.
func (r *StockRepository) CheckAvailability(ctx context.Context, ownerID, id int64, required decimal.Decimal) (*models.StockEntry, error) {
	entry, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if entry.Weight.LessThan(required) {
		return nil, billing.InsufficientStockf("not enough stock for %s: available %sg, required %sg",
			entry.ItemName, entry.Weight.String(), required.String())
	}
	return entry, nil
}

// Decrement atomically subtracts amount from the lot's weight. The WHERE
// clause re-checks availability so concurrent bills drawing on the same lot
// serialize on the row: one wins, the other gets InsufficientStock. Weight
// can never go negative.
func (r *StockRepository) Decrement(ctx context.Context, ownerID, id int64, amount decimal.Decimal) error {
	query := `
		UPDATE stock_entries
		SET weight = weight - $3
		WHERE id = $1 AND owner_id = $2 AND weight >= $3
	`

	tag, err := r.DB.Exec(ctx, query, id, ownerID, amount)
	if err != nil {
		return fmt.Errorf("failed to decrement stock entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the race or the entry vanished; re-read to report which.
		entry, getErr := r.Get(ctx, ownerID, id)
		if getErr != nil {
			return getErr
		}
		return billing.InsufficientStockf("not enough stock for %s: available %sg, required %sg",
			entry.ItemName, entry.Weight.String(), amount.String())
	}
	return nil
}

// Restore is the saga compensation for Decrement: it puts weight back after
// a bill creation aborts partway.
func (r *StockRepository) Restore(ctx context.Context, ownerID, id int64, amount decimal.Decimal) error {
	tag, err := r.DB.Exec(ctx,
		"UPDATE stock_entries SET weight = weight + $3 WHERE id = $1 AND owner_id = $2",
		id, ownerID, amount)
	if err != nil {
		return fmt.Errorf("failed to restore stock entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.NotFoundf("stock entry %d not found", id)
	}
	return nil
}
