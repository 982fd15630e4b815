package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sunar-backend/internal/models"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (shop_name, email, password_hash, phone, address, gst_no)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.DB.QueryRow(ctx, query,
		user.ShopName,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Address,
		user.GSTNo,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, shop_name, email, password_hash, COALESCE(phone, ''),
		       COALESCE(address, ''), COALESCE(gst_no, ''), created_at
		FROM users
		WHERE email = $1
	`

	user := &models.User{}
	err := r.DB.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.ShopName, &user.Email, &user.PasswordHash,
		&user.Phone, &user.Address, &user.GSTNo, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, shop_name, email, password_hash, COALESCE(phone, ''),
		       COALESCE(address, ''), COALESCE(gst_no, ''), created_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.ShopName, &user.Email, &user.PasswordHash,
		&user.Phone, &user.Address, &user.GSTNo, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
