package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MakingChargeMode selects how the artisan fee on a line item is computed.
type MakingChargeMode string

const (
	MakingChargePerGram    MakingChargeMode = "perGram"
	MakingChargePercentage MakingChargeMode = "percentage"
)

// MakingCharge is the tagged making-charge variant: a flat per-gram rate or
// a percentage of the metal value (weight x price-per-gram).
type MakingCharge struct {
	Mode  MakingChargeMode `json:"mode"`
	Value decimal.Decimal  `json:"value"`
}

// PaymentMode classifies how a bill is settled at creation.
type PaymentMode string

const (
	PaymentFull   PaymentMode = "Full"
	PaymentUdhaar PaymentMode = "Udhaar"
)

// BillStatus is derived from (payment mode, paid amount, grand total) and is
// never stored independently of them.
type BillStatus string

const (
	StatusPaid    BillStatus = "Paid"
	StatusPartial BillStatus = "Partial"
	StatusPending BillStatus = "Pending"
)

// LineItem is one priced unit within a bill. Immutable once the bill is
// persisted; corrections happen via new bills.
type LineItem struct {
	ID            int64           `json:"id"`
	Material      Material        `json:"material"`
	ItemName      string          `json:"item_name"`
	Category      string          `json:"category"`
	Weight        decimal.Decimal `json:"weight"`
	PricePerGram  decimal.Decimal `json:"price_per_gram"`
	MakingCharge  MakingCharge    `json:"making_charge"`
	MakingCharges decimal.Decimal `json:"making_charges"` // derived
	StockEntryID  *int64          `json:"stock_entry_id,omitempty"`
	Total         decimal.Decimal `json:"total"` // derived
}

// OldJewelryItem is exchanged old jewelry deducted from the bill total.
type OldJewelryItem struct {
	ID           int64           `json:"id"`
	Material     Material        `json:"material"`
	Weight       decimal.Decimal `json:"weight"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	Total        decimal.Decimal `json:"total"`
}

// Payment is one entry in a bill's append-only payment trail.
type Payment struct {
	ID     int64           `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paid_at"`
}

// Bill is one finalized customer transaction. After creation only the
// payments list and the derived paid/remaining/status fields may change.
// Invariant: RemainingAmount = GrandTotal - PaidAmount.
type Bill struct {
	ID              int64            `json:"id"`
	OwnerID         int64            `json:"owner_id"`
	BillNumber      string           `json:"bill_number"` // BILL-YYMM-NNN, per owner per month
	BillDate        time.Time        `json:"bill_date"`
	CustomerName    string           `json:"customer_name"`
	CustomerPhone   string           `json:"customer_phone"`
	CustomerAddress string           `json:"customer_address"`
	IsGSTBill       bool             `json:"is_gst_bill"`
	IGST            decimal.Decimal  `json:"igst"`
	SGST            decimal.Decimal  `json:"sgst"`
	Items           []LineItem       `json:"items"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Discount        decimal.Decimal  `json:"discount"`
	OldJewelry      []OldJewelryItem `json:"old_jewelry"`
	OldJewelryTotal decimal.Decimal  `json:"old_jewelry_total"`
	GrandTotal      decimal.Decimal  `json:"grand_total"`
	PaymentMode     PaymentMode      `json:"payment_mode"`
	PaidAmount      decimal.Decimal  `json:"paid_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Status          BillStatus       `json:"status"`
	Payments        []Payment        `json:"payments"`
	CreatedAt       time.Time        `json:"created_at"`
}

// LineItemRequest is the raw, unpriced line item as submitted by the client.
type LineItemRequest struct {
	Material          Material         `json:"material"`
	ItemName          string           `json:"item_name"`
	Category          string           `json:"category"`
	Weight            decimal.Decimal  `json:"weight"`
	PricePerGram      decimal.Decimal  `json:"price_per_gram"`
	MakingChargeMode  MakingChargeMode `json:"making_charge_mode"`
	MakingChargeValue decimal.Decimal  `json:"making_charge_value"`
	StockEntryID      *int64           `json:"stock_entry_id,omitempty"`
}

type OldJewelryRequest struct {
	Material     Material        `json:"material"`
	Weight       decimal.Decimal `json:"weight"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
}

type CreateBillRequest struct {
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerAddress string              `json:"customer_address"`
	IsGSTBill       bool                `json:"is_gst_bill"`
	Items           []LineItemRequest   `json:"items"`
	OldJewelry      []OldJewelryRequest `json:"old_jewelry"`
	Discount        decimal.Decimal     `json:"discount"`
	PaymentMode     PaymentMode         `json:"payment_mode"`
	PaidAmount      decimal.Decimal     `json:"paid_amount"`
}

type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
