package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estimate-grid/internal/domain"
	"gorm.io/gorm"
)

type EstimateRepository struct {
	db *gorm.DB
}

func NewEstimateRepository(db *gorm.DB) *EstimateRepository {
	return &EstimateRepository{db: db}
}

func (r *EstimateRepository) Create(ctx context.Context, estimate *domain.Estimate) error {
	if estimate.ID == uuid.Nil {
		estimate.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(estimate).Error
}

func (r *EstimateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Estimate, error) {
	var estimate domain.Estimate
	err := r.db.WithContext(ctx).First(&estimate, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *EstimateRepository) Update(ctx context.Context, estimate *domain.Estimate) error {
	return r.db.WithContext(ctx).Save(estimate).Error
}

func (r *EstimateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Estimate{}, "id = ?", id).Error
}

// LoadRows returns an estimate's grid rows as core data, ordered by position.
func (r *EstimateRepository) LoadRows(ctx context.Context, estimateID uuid.UUID) ([]domain.Row, error) {
	var records []domain.EstimateRowRecord
	err := r.db.WithContext(ctx).
		Where("estimate_id = ?", estimateID).
		Order("position").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Row, 0, len(records))
	for i := range records {
		row, err := records[i].ToRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReplaceRows replaces an estimate's grid rows wholesale in one transaction
// and stamps last_saved_at. This is the auto-save backend: the flat ordered
// list is the only persisted structure, so a full replace is the atomic unit.
func (r *EstimateRepository) ReplaceRows(ctx context.Context, estimateID uuid.UUID, rows []domain.Row) error {
	records := make([]domain.EstimateRowRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := domain.NewEstimateRowRecord(estimateID, i, row)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("estimate_id = ?", estimateID).Delete(&domain.EstimateRowRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear rows: %w", err)
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return fmt.Errorf("failed to insert rows: %w", err)
			}
		}
		now := time.Now().UTC()
		if err := tx.Model(&domain.Estimate{}).
			Where("id = ?", estimateID).
			Updates(map[string]interface{}{"last_saved_at": now, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to stamp estimate: %w", err)
		}
		return nil
	})
}
