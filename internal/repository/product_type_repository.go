package repository

import (
	"context"

	"github.com/straye-as/estimate-grid/internal/domain"
	"gorm.io/gorm"
)

type ProductTypeRepository struct {
	db *gorm.DB
}

func NewProductTypeRepository(db *gorm.DB) *ProductTypeRepository {
	return &ProductTypeRepository{db: db}
}

func (r *ProductTypeRepository) Create(ctx context.Context, record *domain.ProductTypeRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListProductTypes returns all active product-type configurations, decoded.
func (r *ProductTypeRepository) ListProductTypes(ctx context.Context) ([]domain.ProductType, error) {
	var records []domain.ProductTypeRecord
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category, id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductType, 0, len(records))
	for i := range records {
		pt, err := records[i].ToProductType()
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

func (r *ProductTypeRepository) CreateOptionSet(ctx context.Context, record *domain.OptionSetRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListOptionSets returns every shared option set keyed by its data_source
// key — the static-options cache the display layer resolves against.
func (r *ProductTypeRepository) ListOptionSets(ctx context.Context) (map[string][]domain.OptionRecord, error) {
	var records []domain.OptionSetRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]domain.OptionRecord, len(records))
	for i := range records {
		options, err := records[i].ToOptions()
		if err != nil {
			return nil, err
		}
		out[records[i].Key] = options
	}
	return out, nil
}
