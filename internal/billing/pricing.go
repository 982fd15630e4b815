package billing

import (
	"github.com/shopspring/decimal"

	"sunar-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// PriceItem turns a raw line item request into a priced line item.
//
// perGram:    makingCharges = value x weight
// percentage: makingCharges = (value / 100) x (weight x pricePerGram)
// total = weight x pricePerGram + makingCharges
//
// Pure; no side effects. Returns a ValidationError for missing or negative
// numeric fields and unknown modes.
func PriceItem(req models.LineItemRequest) (models.LineItem, error) {
	if req.ItemName == "" {
		return models.LineItem{}, Validationf("item name is required")
	}
	if !req.Material.Valid() {
		return models.LineItem{}, Validationf("item %q: unknown material %q", req.ItemName, req.Material)
	}
	if !req.Weight.IsPositive() {
		return models.LineItem{}, Validationf("item %q: weight must be greater than zero", req.ItemName)
	}
	if req.PricePerGram.IsNegative() {
		return models.LineItem{}, Validationf("item %q: price per gram must not be negative", req.ItemName)
	}
	if req.MakingChargeValue.IsNegative() {
		return models.LineItem{}, Validationf("item %q: making charge value must not be negative", req.ItemName)
	}

	var makingCharges decimal.Decimal
	switch req.MakingChargeMode {
	case models.MakingChargePerGram:
		makingCharges = req.MakingChargeValue.Mul(req.Weight)
	case models.MakingChargePercentage:
		makingCharges = req.MakingChargeValue.Div(hundred).Mul(req.Weight.Mul(req.PricePerGram))
	default:
		return models.LineItem{}, Validationf("item %q: unknown making charge mode %q", req.ItemName, req.MakingChargeMode)
	}
	makingCharges = makingCharges.Round(2)

	return models.LineItem{
		Material:      req.Material,
		ItemName:      req.ItemName,
		Category:      req.Category,
		Weight:        req.Weight,
		PricePerGram:  req.PricePerGram,
		MakingCharge:  models.MakingCharge{Mode: req.MakingChargeMode, Value: req.MakingChargeValue},
		MakingCharges: makingCharges,
		StockEntryID:  req.StockEntryID,
		Total:         req.Weight.Mul(req.PricePerGram).Add(makingCharges).Round(2),
	}, nil
}

// PriceOldJewelry computes the buy-back total of one exchanged old item.
func PriceOldJewelry(req models.OldJewelryRequest) (models.OldJewelryItem, error) {
	if !req.Material.Valid() {
		return models.OldJewelryItem{}, Validationf("old jewelry: unknown material %q", req.Material)
	}
	if !req.Weight.IsPositive() {
		return models.OldJewelryItem{}, Validationf("old jewelry: weight must be greater than zero")
	}
	if req.PricePerGram.IsNegative() {
		return models.OldJewelryItem{}, Validationf("old jewelry: price per gram must not be negative")
	}
	return models.OldJewelryItem{
		Material:     req.Material,
		Weight:       req.Weight,
		PricePerGram: req.PricePerGram,
		Total:        req.Weight.Mul(req.PricePerGram).Round(2),
	}, nil
}
