package validation

import (
	"context"
	"strconv"

	"github.com/straye-as/estimate-grid/internal/domain"
	"github.com/straye-as/estimate-grid/internal/grid"
	"go.uber.org/zap"
)

// RateSource supplies the unit-rate lookup table the pricing context is
// enriched with.
type RateSource interface {
	ListRates(ctx context.Context) (map[string]float64, error)
}

// InitPricingRates loads the unit-rate table. Intended to run in its own
// goroutine at session open; a load failure is logged and pricing degrades
// (rates stay absent) rather than failing the session. Validation itself
// never depends on rates.
func (e *Engine) InitPricingRates(ctx context.Context, src RateSource) {
	rates, err := src.ListRates(ctx)
	if err != nil {
		e.logger.Warn("pricing rate table load failed, pricing will degrade", zap.Error(err))
		return
	}
	e.mu.Lock()
	e.rates = rates
	e.mu.Unlock()
	e.logger.Debug("pricing rate table loaded", zap.Int("rates", len(rates)))
}

// buildPricingContext assembles the opaque per-row context downstream pricing
// consumes. Continuation rows carry no quantity of their own and are skipped.
func buildPricingContext(estimateID string, rows []grid.DerivedRow, prefs domain.CustomerPreferences, rates map[string]float64) domain.PricingContext {
	out := domain.PricingContext{EstimateID: estimateID, Preferences: prefs}
	for _, row := range rows {
		if row.Type == domain.RowTypeContinuation || row.ProductTypeID == "" {
			continue
		}
		qty, err := strconv.ParseFloat(row.Data["quantity"], 64)
		if err != nil {
			qty = 0
		}
		rate, hasRate := rates[row.ProductTypeID]
		out.Rows = append(out.Rows, domain.PricingRow{
			RowID:         row.ID,
			ProductTypeID: row.ProductTypeID,
			Quantity:      qty,
			UnitRate:      rate,
			HasRate:       hasRate,
		})
	}
	return out
}
