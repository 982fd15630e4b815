package models

import "time"

// User is a shop-owner account. Every bill, stock entry and udhaar record
// is scoped to exactly one owner.
type User struct {
	ID           int64     `json:"id"`
	ShopName     string    `json:"shop_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	GSTNo        string    `json:"gst_no"`
	CreatedAt    time.Time `json:"created_at"`
}

type SignupRequest struct {
	ShopName string `json:"shop_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	GSTNo    string `json:"gst_no"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
