package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/model"
)

// OfferRepository reads the offer catalog. The catalog is written by the
// offers service; this service only validates engagements against it.
type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, provider_id, title, price, status, created_at
		FROM offer
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&offer).Error
	if err != nil {
		return nil, err
	}
	if offer.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &offer, nil
}
