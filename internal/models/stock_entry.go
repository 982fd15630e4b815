package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is the metal a line item or stock lot is made of.
type Material string

const (
	MaterialGold   Material = "Gold"
	MaterialSilver Material = "Silver"
)

func (m Material) Valid() bool {
	return m == MaterialGold || m == MaterialSilver
}

// AllowedKarats are the gold purities the shop deals in.
var AllowedKarats = map[int]bool{18: true, 20: true, 21: true, 22: true, 23: true, 24: true}

// StockEntry is one inventory lot. Weight is decremented on sale and never
// goes below zero; the conditional update in StockRepository enforces that.
type StockEntry struct {
	ID              int64           `json:"id"`
	OwnerID         int64           `json:"owner_id"`
	ItemName        string          `json:"item_name"`
	Category        string          `json:"category"`
	Material        Material        `json:"material"`
	Karat           *int            `json:"karat,omitempty"` // set iff Material == Gold
	Weight          decimal.Decimal `json:"weight"`
	ThresholdWeight decimal.Decimal `json:"threshold_weight"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsLowStock reports whether the lot has fallen below its threshold.
func (s *StockEntry) IsLowStock() bool {
	return s.Weight.LessThan(s.ThresholdWeight)
}

type CreateStockEntryRequest struct {
	ItemName        string          `json:"item_name"`
	Category        string          `json:"category"`
	Material        Material        `json:"material"`
	Karat           *int            `json:"karat"`
	Weight          decimal.Decimal `json:"weight"`
	ThresholdWeight decimal.Decimal `json:"threshold_weight"`
}

type UpdateStockEntryRequest struct {
	ItemName        string           `json:"item_name"`
	Category        string           `json:"category"`
	Karat           *int             `json:"karat"`
	Weight          *decimal.Decimal `json:"weight"`
	ThresholdWeight *decimal.Decimal `json:"threshold_weight"`
}
