package repository

import (
	"context"
	"errors"

	"github.com/straye-as/estimate-grid/internal/domain"
	"gorm.io/gorm"
)

type PricingRepository struct {
	db *gorm.DB
}

func NewPricingRepository(db *gorm.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// ListRates returns the unit-rate table keyed by product type id.
func (r *PricingRepository) ListRates(ctx context.Context) (map[string]float64, error) {
	var rates []domain.PricingRate
	if err := r.db.WithContext(ctx).Find(&rates).Error; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rates))
	for _, rate := range rates {
		out[rate.ProductTypeID] = rate.UnitRate
	}
	return out, nil
}

func (r *PricingRepository) CreateRate(ctx context.Context, rate *domain.PricingRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

// GetPreferences returns a customer's stored preferences, or zero-value
// defaults when none are recorded.
func (r *PricingRepository) GetPreferences(ctx context.Context, customerID string) (domain.CustomerPreferences, error) {
	var rec domain.CustomerPreferenceRecord
	err := r.db.WithContext(ctx).First(&rec, "customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CustomerPreferences{CustomerID: customerID}, nil
		}
		return domain.CustomerPreferences{}, err
	}
	return rec.ToPreferences(), nil
}

func (r *PricingRepository) SavePreferences(ctx context.Context, rec *domain.CustomerPreferenceRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}
