package services

import (
	"context"
	"encoding/json"

	"sunar-backend/internal/cache"
	"sunar-backend/internal/models"
	"sunar-backend/internal/repositories"
)

// UdhaarService is the read side of the credit ledger. The outstanding list
// is the shop owner's daily-glance report, so it is served from cache when
// Redis is around.
type UdhaarService struct {
	UdhaarRepo *repositories.UdhaarRepository
}

func NewUdhaarService(udhaarRepo *repositories.UdhaarRepository) *UdhaarService {
	return &UdhaarService{UdhaarRepo: udhaarRepo}
}

func (s *UdhaarService) ListOutstanding(ctx context.Context, ownerID int64) ([]models.UdhaarRecord, error) {
	if data, ok := cache.GetOutstanding(ctx, ownerID); ok {
		var records []models.UdhaarRecord
		if err := json.Unmarshal(data, &records); err == nil {
			return records, nil
		}
	}

	records, err := s.UdhaarRepo.ListOutstanding(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		cache.SetOutstanding(ctx, ownerID, data)
	}
	return records, nil
}

func (s *UdhaarService) GetDetail(ctx context.Context, ownerID int64, customerPhone string) (*models.UdhaarRecord, error) {
	return s.UdhaarRepo.GetByPhone(ctx, ownerID, customerPhone)
}
