// Package validation implements the rule engine the grid engine delegates to
// after each recalculation: per-cell field rules, structural consistency
// checks, and assembly of the pricing context handed to downstream pricing.
package validation

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/estimate-grid/internal/domain"
	"github.com/straye-as/estimate-grid/internal/grid"
	"go.uber.org/zap"
)

// Engine validates grid state and exposes the most recent result through
// synchronous accessors. Safe for the grid engine's timer goroutines.
type Engine struct {
	mu           sync.Mutex
	estimateID   string
	productTypes map[string]domain.ProductType
	validate     *validator.Validate
	results      *ResultSet
	pricing      domain.PricingContext
	rates        map[string]float64
	logger       *zap.Logger
}

// NewEngine builds a validation engine for one estimate.
func NewEngine(estimateID string, productTypes []domain.ProductType, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	indexed := make(map[string]domain.ProductType, len(productTypes))
	for _, pt := range productTypes {
		indexed[pt.ID] = pt
	}
	return &Engine{
		estimateID:   estimateID,
		productTypes: indexed,
		validate:     validator.New(),
		results:      NewResultSet(),
		logger:       log.With(zap.String("estimate_id", estimateID)),
	}
}

// UpdateProductTypes swaps the product-type configuration the field rules
// read from. The next ValidateGrid run picks it up.
func (e *Engine) UpdateProductTypes(productTypes []domain.ProductType) {
	indexed := make(map[string]domain.ProductType, len(productTypes))
	for _, pt := range productTypes {
		indexed[pt.ID] = pt
	}
	e.mu.Lock()
	e.productTypes = indexed
	e.mu.Unlock()
}

// ValidateGrid checks core data and the derived view, replacing the previous
// result set and rebuilding the pricing context.
func (e *Engine) ValidateGrid(ctx context.Context, coreData []domain.Row, prefs domain.CustomerPreferences, displayRows []grid.DerivedRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	productTypes := e.productTypes
	rates := e.rates
	e.mu.Unlock()

	results := NewResultSet()
	for _, row := range displayRows {
		e.checkStructure(results, row)
		e.checkFields(results, row, productTypes)
	}

	pricing := buildPricingContext(e.estimateID, displayRows, prefs, rates)

	e.mu.Lock()
	e.results = results
	e.pricing = pricing
	e.mu.Unlock()

	e.logger.Debug("grid validated",
		zap.Int("rows", len(coreData)),
		zap.Int("errors", results.ErrorCount()),
		zap.Int("warnings", results.WarningCount()),
	)
	return nil
}

func (e *Engine) checkStructure(results *ResultSet, row grid.DerivedRow) {
	if row.Type != domain.RowTypeMain && row.ParentID == "" {
		results.add(Issue{
			RowID:    row.ID,
			Rule:     "orphaned_row",
			Severity: SeverityError,
			Message:  "row has no preceding product line to attach to",
		})
	}
	if row.Type == domain.RowTypeMain && row.ProductTypeID == "" {
		results.add(Issue{
			RowID:    row.ID,
			Rule:     "missing_product_type",
			Severity: SeverityWarning,
			Message:  "product line has no product type assigned",
		})
	}
}

func (e *Engine) checkFields(results *ResultSet, row grid.DerivedRow, productTypes map[string]domain.ProductType) {
	if qty, ok := row.Data["quantity"]; ok && qty != "" {
		if err := e.validate.Var(qty, "numeric"); err != nil {
			results.add(Issue{
				RowID:    row.ID,
				Field:    "quantity",
				Rule:     "quantity_numeric",
				Severity: SeverityError,
				Message:  fmt.Sprintf("quantity %q is not a number", qty),
			})
		}
	}

	pt, hasType := productTypes[row.ProductTypeID]
	if hasType {
		for _, field := range pt.AllFields() {
			value := row.Data[field.Name]
			if field.Required && value == "" {
				results.add(Issue{
					RowID:    row.ID,
					Field:    field.Name,
					Rule:     "required",
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s is required", fieldLabel(field)),
				})
			}
			if field.Numeric && value != "" {
				if err := e.validate.Var(value, "numeric"); err != nil {
					results.add(Issue{
						RowID:    row.ID,
						Field:    field.Name,
						Rule:     "numeric",
						Severity: SeverityError,
						Message:  fmt.Sprintf("%s must be a number", fieldLabel(field)),
					})
				}
			}
		}
	}

	// Option membership: a committed value must be one of the resolved
	// options when the field is constrained at all.
	for field, options := range row.StaticFieldOptions {
		if len(options) == 0 {
			continue
		}
		value := row.Data[field]
		if value == "" {
			continue
		}
		if !contains(options, value) {
			results.add(Issue{
				RowID:    row.ID,
				Field:    field,
				Rule:     "invalid_option",
				Severity: SeverityError,
				Message:  fmt.Sprintf("%q is not an allowed value for %s", value, field),
			})
		}
	}
}

// HasBlockingErrors reports whether the last run recorded any errors.
func (e *Engine) HasBlockingErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.HasBlockingErrors()
}

// ErrorCount returns the last run's error count.
func (e *Engine) ErrorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.ErrorCount()
}

// Results returns the last run's result set.
func (e *Engine) Results() *ResultSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// PricingContext returns the pricing context built by the last run.
func (e *Engine) PricingContext() domain.PricingContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pricing
}

func fieldLabel(field domain.FieldConfig) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
