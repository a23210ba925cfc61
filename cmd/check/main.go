// Command check is an offline estimate inspector: it loads an estimate's
// grid rows, runs the full derivation pipeline and validation once, and
// prints the resulting numbering and any issues found.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/straye-as/estimate-grid/internal/config"
	"github.com/straye-as/estimate-grid/internal/database"
	"github.com/straye-as/estimate-grid/internal/grid"
	"github.com/straye-as/estimate-grid/internal/logger"
	"github.com/straye-as/estimate-grid/internal/repository"
	"github.com/straye-as/estimate-grid/internal/validation"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: check <estimate-id>")
	}
	estimateID, err := uuid.Parse(os.Args[1])
	if err != nil {
		return fmt.Errorf("invalid estimate id %q: %w", os.Args[1], err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	estimateRepo := repository.NewEstimateRepository(db)
	productTypeRepo := repository.NewProductTypeRepository(db)
	pricingRepo := repository.NewPricingRepository(db)

	estimate, err := estimateRepo.GetByID(ctx, estimateID)
	if err != nil {
		return fmt.Errorf("failed to load estimate: %w", err)
	}
	rows, err := estimateRepo.LoadRows(ctx, estimateID)
	if err != nil {
		return fmt.Errorf("failed to load rows: %w", err)
	}
	productTypes, err := productTypeRepo.ListProductTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load product types: %w", err)
	}
	optionSets, err := productTypeRepo.ListOptionSets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load option sets: %w", err)
	}
	prefs, err := pricingRepo.GetPreferences(ctx, estimate.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	derived := grid.DeriveRelationships(rows)
	derived = grid.ApplyDisplay(derived, grid.NewDisplayContext(productTypes, optionSets))
	derived = grid.ApplyInteraction(derived, grid.InteractionContext{EditMode: grid.EditModeEditing})

	validator := validation.NewEngine(estimateID.String(), productTypes, log)
	validator.InitPricingRates(ctx, pricingRepo)
	if err := validator.ValidateGrid(ctx, rows, prefs, derived); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("Estimate %s — %q (%d rows)\n\n", estimateID, estimate.Title, len(rows))
	for _, row := range derived {
		number := row.DisplayNumber
		if number == "" {
			number = "-"
		}
		fmt.Printf("%-6s %-14s %-30s\n", number, row.Type, row.ProductTypeName)
		for _, issue := range validator.Results().RowIssues(row.ID) {
			fmt.Printf("       [%s] %s: %s\n", issue.Severity, issue.Rule, issue.Message)
		}
	}

	results := validator.Results()
	fmt.Printf("\n%d errors, %d warnings\n", results.ErrorCount(), results.WarningCount())
	if results.HasBlockingErrors() {
		log.Warn("estimate has blocking errors",
			zap.String("estimate_id", estimateID.String()),
			zap.Int("errors", results.ErrorCount()))
		os.Exit(2)
	}
	return nil
}
