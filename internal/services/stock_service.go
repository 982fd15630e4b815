package services

import (
	"context"
	"encoding/json"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/cache"
	"sunar-backend/internal/models"
	"sunar-backend/internal/repositories"
)

type StockService struct {
	StockRepo *repositories.StockRepository
}

func NewStockService(stockRepo *repositories.StockRepository) *StockService {
	return &StockService{StockRepo: stockRepo}
}

func validateKarat(material models.Material, karat *int) error {
	if material == models.MaterialGold {
		if karat == nil {
			return billing.Validationf("karat is required for gold stock")
		}
		if !models.AllowedKarats[*karat] {
			return billing.Validationf("karat %d is not valid, allowed: 18, 20, 21, 22, 23, 24", *karat)
		}
		return nil
	}
	if karat != nil {
		return billing.Validationf("karat applies only to gold stock")
	}
	return nil
}

func (s *StockService) Create(ctx context.Context, ownerID int64, req *models.CreateStockEntryRequest) (*models.StockEntry, error) {
	if req.ItemName == "" {
		return nil, billing.Validationf("item name is required")
	}
	if !req.Material.Valid() {
		return nil, billing.Validationf("material must be Gold or Silver, got %q", req.Material)
	}
	if err := validateKarat(req.Material, req.Karat); err != nil {
		return nil, err
	}
	if req.Weight.IsNegative() {
		return nil, billing.Validationf("weight must not be negative")
	}
	if req.ThresholdWeight.IsNegative() {
		return nil, billing.Validationf("threshold weight must not be negative")
	}

	entry := &models.StockEntry{
		OwnerID:         ownerID,
		ItemName:        req.ItemName,
		Category:        req.Category,
		Material:        req.Material,
		Karat:           req.Karat,
		Weight:          req.Weight,
		ThresholdWeight: req.ThresholdWeight,
	}
	if err := s.StockRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	cache.InvalidateLowStock(ctx, ownerID)
	return entry, nil
}

func (s *StockService) Get(ctx context.Context, ownerID, id int64) (*models.StockEntry, error) {
	return s.StockRepo.Get(ctx, ownerID, id)
}

func (s *StockService) List(ctx context.Context, ownerID int64) ([]models.StockEntry, error) {
	return s.StockRepo.List(ctx, ownerID)
}

// ListLowStock returns lots below their threshold weight, cached briefly
// since the dashboard polls it.
func (s *StockService) ListLowStock(ctx context.Context, ownerID int64) ([]models.StockEntry, error) {
	if data, ok := cache.GetLowStock(ctx, ownerID); ok {
		var entries []models.StockEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
	}

	entries, err := s.StockRepo.ListLowStock(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(entries); err == nil {
		cache.SetLowStock(ctx, ownerID, data)
	}
	return entries, nil
}

func (s *StockService) Update(ctx context.Context, ownerID, id int64, req *models.UpdateStockEntryRequest) (*models.StockEntry, error) {
	entry, err := s.StockRepo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.ItemName != "" {
		entry.ItemName = req.ItemName
	}
	if req.Category != "" {
		entry.Category = req.Category
	}
	if req.Karat != nil {
		entry.Karat = req.Karat
	}
	if err := validateKarat(entry.Material, entry.Karat); err != nil {
		return nil, err
	}
	if req.Weight != nil {
		if req.Weight.IsNegative() {
			return nil, billing.Validationf("weight must not be negative")
		}
		entry.Weight = *req.Weight
	}
	if req.ThresholdWeight != nil {
		if req.ThresholdWeight.IsNegative() {
			return nil, billing.Validationf("threshold weight must not be negative")
		}
		entry.ThresholdWeight = *req.ThresholdWeight
	}

	if err := s.StockRepo.Update(ctx, entry); err != nil {
		return nil, err
	}

	cache.InvalidateLowStock(ctx, ownerID)
	return entry, nil
}

func (s *StockService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.StockRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	cache.InvalidateLowStock(ctx, ownerID)
	return nil
}
