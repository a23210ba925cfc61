package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estimate-grid/internal/domain"
	"github.com/straye-as/estimate-grid/internal/grid"
	"github.com/straye-as/estimate-grid/internal/repository"
	"github.com/straye-as/estimate-grid/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Session binds one open estimate to its engine and validation collaborator.
// One session per estimate; the service enforces uniqueness and teardown.
type Session struct {
	EstimateID uuid.UUID
	Engine     *grid.Engine
	Validator  *validation.Engine
	OpenedAt   time.Time
}

// SessionOptions configures a session at open time.
type SessionOptions struct {
	ReadOnly        bool
	ValidationDelay time.Duration
	AutoSaveDelay   time.Duration
	Callbacks       grid.Callbacks
}

// EstimateService owns the open editing sessions. It wires each engine to the
// repository-backed saver/loader, the validation engine, and the pricing-rate
// loader, and it backs the periodic dirty-session flush.
type EstimateService struct {
	estimateRepo    *repository.EstimateRepository
	productTypeRepo *repository.ProductTypeRepository
	pricingRepo     *repository.PricingRepository
	logger          *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewEstimateService(
	estimateRepo *repository.EstimateRepository,
	productTypeRepo *repository.ProductTypeRepository,
	pricingRepo *repository.PricingRepository,
	logger *zap.Logger,
) *EstimateService {
	return &EstimateService{
		estimateRepo:    estimateRepo,
		productTypeRepo: productTypeRepo,
		pricingRepo:     pricingRepo,
		logger:          logger,
		sessions:        make(map[uuid.UUID]*Session),
	}
}

// OpenSession loads an estimate's configuration and rows and constructs its
// engine. The pricing-rate table loads in the background; a failure there
// degrades pricing only (see validation.InitPricingRates).
func (s *EstimateService) OpenSession(ctx context.Context, estimateID uuid.UUID, opts SessionOptions) (*Session, error) {
	s.mu.Lock()
	if _, open := s.sessions[estimateID]; open {
		s.mu.Unlock()
		return nil, ErrSessionAlreadyOpen
	}
	s.mu.Unlock()

	estimate, err := s.estimateRepo.GetByID(ctx, estimateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load estimate: %w", err)
	}

	productTypes, err := s.productTypeRepo.ListProductTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load product types: %w", err)
	}
	optionSets, err := s.productTypeRepo.ListOptionSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load option sets: %w", err)
	}
	prefs, err := s.pricingRepo.GetPreferences(ctx, estimate.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer preferences: %w", err)
	}

	validator := validation.NewEngine(estimateID.String(), productTypes, s.logger)
	engine := grid.NewEngine(grid.Config{
		EstimateID:      estimateID.String(),
		ProductTypes:    productTypes,
		StaticOptions:   optionSets,
		Preferences:     prefs,
		ReadOnly:        opts.ReadOnly,
		ValidationDelay: opts.ValidationDelay,
		AutoSaveDelay:   opts.AutoSaveDelay,
	}, validator, &repoSaver{repo: s.estimateRepo}, opts.Callbacks, s.logger)

	if err := engine.ReloadFromBackend(ctx, &repoLoader{repo: s.estimateRepo}); err != nil {
		engine.Destroy()
		return nil, fmt.Errorf("failed to load estimate rows: %w", err)
	}

	go validator.InitPricingRates(context.Background(), s.pricingRepo)

	session := &Session{
		EstimateID: estimateID,
		Engine:     engine,
		Validator:  validator,
		OpenedAt:   time.Now(),
	}

	s.mu.Lock()
	if _, open := s.sessions[estimateID]; open {
		s.mu.Unlock()
		engine.Destroy()
		return nil, ErrSessionAlreadyOpen
	}
	s.sessions[estimateID] = session
	s.mu.Unlock()

	s.logger.Info("estimate session opened",
		zap.String("estimate_id", estimateID.String()),
		zap.Bool("read_only", opts.ReadOnly),
	)
	return session, nil
}

// GetSession returns the open session for an estimate.
func (s *EstimateService) GetSession(estimateID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[estimateID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CloseSession flushes unsaved changes, then destroys the engine so no timer
// fires after teardown. The flush error is returned but the session is torn
// down regardless — a closing editor must not be able to wedge the registry.
func (s *EstimateService) CloseSession(ctx context.Context, estimateID uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[estimateID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, estimateID)
	s.mu.Unlock()

	flushErr := session.Engine.Flush(ctx)
	session.Engine.Destroy()

	if flushErr != nil {
		s.logger.Warn("failed to flush estimate on close",
			zap.String("estimate_id", estimateID.String()),
			zap.Error(flushErr),
		)
		return fmt.Errorf("failed to flush estimate on close: %w", flushErr)
	}
	s.logger.Info("estimate session closed", zap.String("estimate_id", estimateID.String()))
	return nil
}

// FlushDirty force-saves every open session with unsaved changes. Run
// periodically by the background flush job as a safety net under the
// debounced auto-save. Returns the number of sessions flushed.
func (s *EstimateService) FlushDirty(ctx context.Context) int {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	flushed := 0
	for _, session := range sessions {
		if !session.Engine.HasUnsavedChanges() {
			continue
		}
		if err := session.Engine.Flush(ctx); err != nil {
			s.logger.Warn("periodic flush failed",
				zap.String("estimate_id", session.EstimateID.String()),
				zap.Error(err),
			)
			continue
		}
		flushed++
	}
	return flushed
}

// OpenSessionCount reports how many sessions are currently open.
func (s *EstimateService) OpenSessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// repoSaver adapts EstimateRepository to the engine's Saver contract.
type repoSaver struct {
	repo *repository.EstimateRepository
}

func (a *repoSaver) Save(ctx context.Context, estimateID string, rows []domain.Row) error {
	id, err := uuid.Parse(estimateID)
	if err != nil {
		return fmt.Errorf("invalid estimate id %q: %w", estimateID, err)
	}
	return a.repo.ReplaceRows(ctx, id, rows)
}

// repoLoader adapts EstimateRepository to the engine's Loader contract.
type repoLoader struct {
	repo *repository.EstimateRepository
}

func (a *repoLoader) LoadRows(ctx context.Context, estimateID string) ([]domain.Row, error) {
	id, err := uuid.Parse(estimateID)
	if err != nil {
		return nil, fmt.Errorf("invalid estimate id %q: %w", estimateID, err)
	}
	return a.repo.LoadRows(ctx, id)
}
