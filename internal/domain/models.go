package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Base model with common fields. IDs are assigned in code so the models work
// against both Postgres and the SQLite test databases.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// EstimateStatus represents the lifecycle status of an estimate
type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusApproved EstimateStatus = "approved"
	EstimateStatusArchived EstimateStatus = "archived"
)

// IsValid checks if the EstimateStatus is a valid enum value
func (es EstimateStatus) IsValid() bool {
	switch es {
	case EstimateStatusDraft, EstimateStatusSent, EstimateStatusApproved, EstimateStatusArchived:
		return true
	}
	return false
}

// Estimate represents a job estimate owning an ordered list of grid rows
type Estimate struct {
	BaseModel
	Title        string              `gorm:"type:varchar(200);not null;index"`
	CustomerID   string              `gorm:"type:varchar(100);index;column:customer_id"`
	CustomerName string              `gorm:"type:varchar(200);column:customer_name"`
	Status       EstimateStatus      `gorm:"type:varchar(50);not null;default:'draft';index"`
	LastSavedAt  *time.Time          `gorm:"column:last_saved_at"`
	Rows         []EstimateRowRecord `gorm:"foreignKey:EstimateID;constraint:OnDelete:CASCADE"`
}

// EstimateRowRecord is the persisted form of one grid row. Position is the
// only ordering information stored; hierarchy is re-derived from position and
// row type on load, never persisted.
type EstimateRowRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	EstimateID      uuid.UUID `gorm:"type:uuid;not null;index;column:estimate_id"`
	Position        int       `gorm:"not null;column:position"`
	RowType         RowType   `gorm:"type:varchar(50);not null;column:row_type"`
	ProductTypeID   string    `gorm:"type:varchar(100);column:product_type_id"`
	ProductTypeName string    `gorm:"type:varchar(200);column:product_type_name"`
	Data            string    `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the default table name to match the migration
func (EstimateRowRecord) TableName() string {
	return "estimate_rows"
}

// ToRow converts a persisted record to an in-memory core row.
func (rec *EstimateRowRecord) ToRow() (Row, error) {
	data := map[string]string{}
	if rec.Data != "" {
		if err := json.Unmarshal([]byte(rec.Data), &data); err != nil {
			return Row{}, fmt.Errorf("failed to decode row data for %s: %w", rec.ID, err)
		}
	}
	return Row{
		ID:              rec.ID.String(),
		Type:            rec.RowType,
		ProductTypeID:   rec.ProductTypeID,
		ProductTypeName: rec.ProductTypeName,
		Data:            data,
	}, nil
}

// NewEstimateRowRecord converts an in-memory core row to its persisted form.
func NewEstimateRowRecord(estimateID uuid.UUID, position int, row Row) (EstimateRowRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return EstimateRowRecord{}, fmt.Errorf("row id %q is not a valid uuid: %w", row.ID, err)
	}
	data := row.Data
	if data == nil {
		data = map[string]string{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return EstimateRowRecord{}, fmt.Errorf("failed to encode row data for %s: %w", row.ID, err)
	}
	return EstimateRowRecord{
		ID:              id,
		EstimateID:      estimateID,
		Position:        position,
		RowType:         row.Type,
		ProductTypeID:   row.ProductTypeID,
		ProductTypeName: row.ProductTypeName,
		Data:            string(encoded),
	}, nil
}

// ProductTypeRecord is the persisted form of a product-type configuration.
// Fields holds the grouped field configs as JSON.
type ProductTypeRecord struct {
	ID        string    `gorm:"type:varchar(100);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Category  string    `gorm:"type:varchar(100);not null;index" json:"category"`
	Fields    string    `gorm:"type:jsonb;not null;default:'[]'" json:"fields"`
	IsActive  bool      `gorm:"not null;default:true;column:is_active" json:"isActive"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName returns the table name for ProductTypeRecord
func (ProductTypeRecord) TableName() string {
	return "product_types"
}

// ToProductType decodes the record into its in-memory configuration form.
func (rec *ProductTypeRecord) ToProductType() (ProductType, error) {
	var fields [][]FieldConfig
	if rec.Fields != "" {
		if err := json.Unmarshal([]byte(rec.Fields), &fields); err != nil {
			return ProductType{}, fmt.Errorf("failed to decode fields for product type %s: %w", rec.ID, err)
		}
	}
	return ProductType{
		ID:       rec.ID,
		Name:     rec.Name,
		Category: rec.Category,
		Fields:   fields,
	}, nil
}

// OptionSetRecord is a shared option list referenced by field configs through
// their data_source key.
type OptionSetRecord struct {
	Key       string    `gorm:"type:varchar(100);primaryKey" json:"key"`
	Options   string    `gorm:"type:jsonb;not null;default:'[]'" json:"options"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName returns the table name for OptionSetRecord
func (OptionSetRecord) TableName() string {
	return "option_sets"
}

// ToOptions decodes the stored option records.
func (rec *OptionSetRecord) ToOptions() ([]OptionRecord, error) {
	var out []OptionRecord
	if rec.Options != "" {
		if err := json.Unmarshal([]byte(rec.Options), &out); err != nil {
			return nil, fmt.Errorf("failed to decode option set %s: %w", rec.Key, err)
		}
	}
	return out, nil
}

// PricingRate is one row of the unit-rate lookup table feeding the pricing
// context. Loaded asynchronously at session open; absence degrades pricing,
// never validation.
type PricingRate struct {
	ProductTypeID string    `gorm:"type:varchar(100);primaryKey;column:product_type_id"`
	UnitRate      float64   `gorm:"type:decimal(15,4);not null;column:unit_rate"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'USD'"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// CustomerPreferenceRecord is the persisted form of customer preferences.
type CustomerPreferenceRecord struct {
	CustomerID      string    `gorm:"type:varchar(100);primaryKey;column:customer_id"`
	PreferredUnits  string    `gorm:"type:varchar(20);not null;default:'imperial';column:preferred_units"`
	DiscountPercent float64   `gorm:"type:decimal(5,2);not null;default:0;column:discount_percent"`
	TaxExempt       bool      `gorm:"not null;default:false;column:tax_exempt"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName returns the table name for CustomerPreferenceRecord
func (CustomerPreferenceRecord) TableName() string {
	return "customer_preferences"
}

// ToPreferences converts the record to its in-memory form.
func (rec *CustomerPreferenceRecord) ToPreferences() CustomerPreferences {
	return CustomerPreferences{
		CustomerID:      rec.CustomerID,
		PreferredUnits:  rec.PreferredUnits,
		DiscountPercent: rec.DiscountPercent,
		TaxExempt:       rec.TaxExempt,
	}
}
