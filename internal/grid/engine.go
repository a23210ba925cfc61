package grid

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/straye-as/estimate-grid/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultValidationDelay is the debounce window for validation runs.
	DefaultValidationDelay = 150 * time.Millisecond
	// DefaultAutoSaveDelay is the debounce window for auto-saves.
	DefaultAutoSaveDelay = 500 * time.Millisecond
)

// ErrEngineDestroyed is returned by operations invoked after Destroy.
var ErrEngineDestroyed = errors.New("grid engine destroyed")

// Validator is the validation collaborator. ValidateGrid checks the current
// core data against the rules it owns; the synchronous accessors expose the
// most recent result. A failing ValidateGrid means "no result available",
// never a blocked grid.
type Validator interface {
	ValidateGrid(ctx context.Context, coreData []domain.Row, prefs domain.CustomerPreferences, displayRows []DerivedRow) error
	HasBlockingErrors() bool
	ErrorCount() int
	PricingContext() domain.PricingContext
	// UpdateProductTypes swaps the product-type configuration the field rules
	// read from. Invoked when the engine receives a product-type config
	// update, so validation never runs against retired rules.
	UpdateProductTypes(productTypes []domain.ProductType)
}

// Saver is the auto-save backend. The engine has no opinion on transport or
// serialization; failure is communicated solely through the returned error.
type Saver interface {
	Save(ctx context.Context, estimateID string, rows []domain.Row) error
}

// Loader is the backend load contract for ReloadFromBackend.
type Loader interface {
	LoadRows(ctx context.Context, estimateID string) ([]domain.Row, error)
}

// Callbacks is the sole channel through which a consumer learns of engine
// state changes; there is no polling API. All callbacks are optional and are
// invoked outside the engine lock with defensive copies.
type Callbacks struct {
	OnRowsChange       func(rows []DerivedRow)
	OnStateChange      func(state State)
	OnValidationChange func(hasErrors bool, errorCount int, pricing domain.PricingContext)
	OnSaveError        func(err error)
}

// State is a snapshot of the engine's non-row state.
type State struct {
	EstimateID        string
	EditMode          EditMode
	ReadOnly          bool
	HasUnsavedChanges bool
	LastSaved         time.Time
	LastSaveError     error
	Drag              DragState
	RowCount          int
}

// Config carries the static context an engine instance is constructed with.
type Config struct {
	EstimateID      string
	ProductTypes    []domain.ProductType
	StaticOptions   map[string][]domain.OptionRecord
	Preferences     domain.CustomerPreferences
	ReadOnly        bool
	ValidationDelay time.Duration
	AutoSaveDelay   time.Duration
}

// ConfigUpdate is a partial configuration merge. Nil fields are left alone.
// A product-type change rebuilds the operations module and forces a full
// recalculation; a preferences change re-triggers validation only.
type ConfigUpdate struct {
	ProductTypes  []domain.ProductType
	StaticOptions map[string][]domain.OptionRecord
	Preferences   *domain.CustomerPreferences
}

// UpdateOptions modifies how UpdateCoreData treats a replacement.
type UpdateOptions struct {
	// MarkAsDirty controls whether the replacement schedules an auto-save.
	// Backend reloads pass false so a reload never triggers a spurious save.
	MarkAsDirty bool
}

// Engine owns one estimate's core data and derived state. All mutation goes
// through its public methods; getters hand out copies. One instance per open
// estimate-editing session, torn down with Destroy.
type Engine struct {
	mu sync.Mutex

	// saveMu serializes saves end to end. The debounced auto-save and Flush
	// (close, periodic flush job) can run concurrently; without ordering, a
	// slow earlier save completing after a later one would leave the backend
	// on a stale snapshot while the engine believes it is clean.
	saveMu sync.Mutex

	estimateID    string
	productTypes  []domain.ProductType
	staticOptions map[string][]domain.OptionRecord
	preferences   domain.CustomerPreferences
	readOnly      bool

	ops      *Operations
	coreData []domain.Row
	derived  []DerivedRow

	editMode EditMode
	drag     DragState

	dirty         bool
	mutationSeq   uint64
	lastSaved     time.Time
	lastSaveError error
	destroyed     bool

	validator Validator
	saver     Saver
	callbacks Callbacks
	logger    *zap.Logger

	validationDeb *Debouncer
	autoSaveDeb   *Debouncer
}

// NewEngine constructs an engine over empty core data. Load content with
// UpdateCoreData or ReloadFromBackend.
func NewEngine(cfg Config, validator Validator, saver Saver, callbacks Callbacks, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ValidationDelay <= 0 {
		cfg.ValidationDelay = DefaultValidationDelay
	}
	if cfg.AutoSaveDelay <= 0 {
		cfg.AutoSaveDelay = DefaultAutoSaveDelay
	}
	e := &Engine{
		estimateID:    cfg.EstimateID,
		productTypes:  cfg.ProductTypes,
		staticOptions: cfg.StaticOptions,
		preferences:   cfg.Preferences,
		readOnly:      cfg.ReadOnly,
		ops:           NewOperations(cfg.ProductTypes),
		editMode:      EditModeEditing,
		validator:     validator,
		saver:         saver,
		callbacks:     callbacks,
		logger:        log.With(zap.String("estimate_id", cfg.EstimateID)),
		validationDeb: NewDebouncer(cfg.ValidationDelay),
		autoSaveDeb:   NewDebouncer(cfg.AutoSaveDelay),
	}
	return e
}

// UpdateCoreData replaces core data wholesale and runs full recalculation.
func (e *Engine) UpdateCoreData(rows []domain.Row, opts *UpdateOptions) {
	markDirty := true
	if opts != nil {
		markDirty = opts.MarkAsDirty
	}
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.coreData = domain.CloneRows(rows)
	e.applyMutationLocked(markDirty)
	derived, state := e.recalculateLocked()
	e.mu.Unlock()

	e.notify(derived, state)
	e.scheduleSideEffects(markDirty)
}

// UpdateSingleRow is the fast path for a single-row field commit: data values
// change in place, structure cannot have changed, so the three layers are not
// recomputed. Callers must route structural changes through the full paths.
func (e *Engine) UpdateSingleRow(rowID string, updates map[string]string) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.coreData = e.ops.UpdateRowFields(e.coreData, rowID, updates)
	// Patch the derived view so subscribers see current cell values without a
	// layer pass.
	for i := range e.derived {
		if e.derived[i].ID == rowID {
			for k, v := range updates {
				e.derived[i].Data[k] = v
			}
		}
	}
	e.applyMutationLocked(true)
	derived := CloneDerivedRows(e.derived)
	state := e.stateLocked()
	e.mu.Unlock()

	e.notify(derived, state)
	e.scheduleSideEffects(true)
}

// UpdateRowProductType assigns a product type to a row. Structural: it can
// change available fields and relationships, so it always recalculates.
func (e *Engine) UpdateRowProductType(rowID, productTypeID, productTypeName string) {
	e.structuralMutation(func() {
		e.coreData = e.ops.UpdateRowProductType(e.coreData, rowID, productTypeID, productTypeName)
	})
}

// InsertRow inserts a new row after the given index (-1 prepends) and returns
// its id.
func (e *Engine) InsertRow(afterIndex int, rowType domain.RowType, productTypeID string) string {
	var newID string
	e.structuralMutation(func() {
		var row domain.Row
		e.coreData, row = e.ops.InsertRow(e.coreData, afterIndex, rowType, productTypeID)
		if productTypeID != "" {
			e.coreData = e.ops.UpdateRowProductType(e.coreData, row.ID, productTypeID, row.ProductTypeName)
		}
		newID = row.ID
	})
	return newID
}

// DeleteRow removes a row; deleting a main row cascades to its children.
func (e *Engine) DeleteRow(rowID string) {
	e.structuralMutation(func() {
		e.coreData = e.ops.DeleteRow(e.coreData, e.derived, rowID)
	})
}

// DuplicateRow clones a row (and its children, for a main row) with fresh ids.
func (e *Engine) DuplicateRow(rowID string) {
	e.structuralMutation(func() {
		e.coreData = e.ops.DuplicateRow(e.coreData, e.derived, rowID)
	})
}

// MoveRows relocates the dragged block relative to the target row. The
// dragged set arrives complete from the interaction layer (a main row always
// travels with its children).
func (e *Engine) MoveRows(draggedRowIDs []string, targetRowID string, position DropPosition) {
	e.structuralMutation(func() {
		e.coreData = MoveRows(e.coreData, draggedRowIDs, targetRowID, position)
	})
}

func (e *Engine) structuralMutation(mutate func()) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	mutate()
	e.applyMutationLocked(true)
	derived, state := e.recalculateLocked()
	e.mu.Unlock()

	e.notify(derived, state)
	e.scheduleSideEffects(true)
}

// ReloadFromBackend replaces core data from the injected loader. The load is
// explicitly not dirty, and product-type processing is re-applied per row
// since it establishes type-dependent defaults beyond a plain field copy.
func (e *Engine) ReloadFromBackend(ctx context.Context, loader Loader) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrEngineDestroyed
	}
	estimateID := e.estimateID
	e.mu.Unlock()

	rows, err := loader.LoadRows(ctx, estimateID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	for i := range rows {
		rows[i] = e.ops.ApplyProductTypeDefaults(rows[i])
	}
	e.mu.Unlock()

	e.UpdateCoreData(rows, &UpdateOptions{MarkAsDirty: false})
	return nil
}

// SetEditMode switches interaction mode and forces a recalculation even
// though core data did not change — capabilities depend on the mode.
func (e *Engine) SetEditMode(mode EditMode) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.editMode = mode
	derived, state := e.recalculateLocked()
	e.mu.Unlock()

	e.notify(derived, state)
	e.scheduleSideEffects(false)
}

// SetDragState records an in-flight drag and recalculates interaction
// capabilities. Not a data mutation; nothing is marked dirty.
func (e *Engine) SetDragState(drag DragState) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.drag = drag
	derived, state := e.recalculateLocked()
	e.mu.Unlock()

	e.notify(derived, state)
}

// UpdateConfig merges a partial configuration. Product-type changes rebuild
// the operations module and force recalculation; preference changes only
// re-trigger validation.
func (e *Engine) UpdateConfig(update ConfigUpdate) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	recalc := false
	if update.ProductTypes != nil {
		e.productTypes = update.ProductTypes
		e.ops = NewOperations(update.ProductTypes)
		recalc = true
	}
	if update.StaticOptions != nil {
		e.staticOptions = update.StaticOptions
		recalc = true
	}
	revalidateOnly := false
	if update.Preferences != nil {
		e.preferences = *update.Preferences
		revalidateOnly = !recalc
	}

	var derived []DerivedRow
	var state State
	if recalc {
		derived, state = e.recalculateLocked()
	}
	e.mu.Unlock()

	if update.ProductTypes != nil && e.validator != nil {
		e.validator.UpdateProductTypes(update.ProductTypes)
	}
	if recalc {
		e.notify(derived, state)
		e.scheduleSideEffects(false)
	} else if revalidateOnly {
		e.validationDeb.Trigger(e.runValidation)
	}
}

// Rows returns a copy of the last fully-derived view.
func (e *Engine) Rows() []DerivedRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CloneDerivedRows(e.derived)
}

// CoreData returns a copy of the authoritative row list.
func (e *Engine) CoreData() []domain.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneRows(e.coreData)
}

// State returns a snapshot of the engine's non-row state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// HasUnsavedChanges reports whether a mutation is awaiting a successful save.
func (e *Engine) HasUnsavedChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Flush saves immediately, bypassing the debounce window. Used by the
// periodic flush job and at session close.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrEngineDestroyed
	}
	if !e.dirty {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	return e.save(ctx)
}

// Destroy cancels pending timers so no validation or save fires after the
// engine's owner is torn down. An in-flight save or validation completes and
// its result is discarded.
func (e *Engine) Destroy() {
	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()
	e.validationDeb.Stop()
	e.autoSaveDeb.Stop()
}

// --- internals ---

func (e *Engine) applyMutationLocked(markDirty bool) {
	e.mutationSeq++
	if markDirty {
		e.dirty = true
	}
}

// recalculateLocked runs the three layers in strict order over current core
// data. Synchronous and atomic: derived state is replaced in one step, so a
// partially recalculated view is never observable.
func (e *Engine) recalculateLocked() ([]DerivedRow, State) {
	rows := DeriveRelationships(e.coreData)
	rows = ApplyDisplay(rows, NewDisplayContext(e.productTypes, e.staticOptions))
	rows = ApplyInteraction(rows, InteractionContext{
		ReadOnly: e.readOnly,
		EditMode: e.editMode,
		Drag:     e.drag,
	})
	e.derived = rows
	return CloneDerivedRows(rows), e.stateLocked()
}

func (e *Engine) stateLocked() State {
	return State{
		EstimateID:        e.estimateID,
		EditMode:          e.editMode,
		ReadOnly:          e.readOnly,
		HasUnsavedChanges: e.dirty,
		LastSaved:         e.lastSaved,
		LastSaveError:     e.lastSaveError,
		Drag:              e.drag,
		RowCount:          len(e.coreData),
	}
}

func (e *Engine) notify(rows []DerivedRow, state State) {
	if e.callbacks.OnRowsChange != nil {
		e.callbacks.OnRowsChange(rows)
	}
	if e.callbacks.OnStateChange != nil {
		e.callbacks.OnStateChange(state)
	}
}

// scheduleSideEffects keeps validation and auto-save timing centralized:
// every recalculation (and the single-row fast path) funnels through here,
// regardless of which public mutation method fired it.
func (e *Engine) scheduleSideEffects(dirty bool) {
	e.validationDeb.Trigger(e.runValidation)
	if dirty {
		e.autoSaveDeb.Trigger(e.runAutoSave)
	}
}

// runValidation reads current state inside the timer callback, not at
// schedule time, so validation always observes the most recent completed
// recalculation.
func (e *Engine) runValidation() {
	e.mu.Lock()
	if e.destroyed || e.validator == nil {
		e.mu.Unlock()
		return
	}
	coreData := domain.CloneRows(e.coreData)
	derived := CloneDerivedRows(e.derived)
	prefs := e.preferences
	e.mu.Unlock()

	if err := e.validator.ValidateGrid(context.Background(), coreData, prefs, derived); err != nil {
		// A validation crash must never block editing or saving.
		e.logger.Error("grid validation failed", zap.Error(err))
		return
	}

	if e.callbacks.OnValidationChange != nil {
		e.callbacks.OnValidationChange(
			e.validator.HasBlockingErrors(),
			e.validator.ErrorCount(),
			e.validator.PricingContext(),
		)
	}
}

func (e *Engine) runAutoSave() {
	if err := e.save(context.Background()); err != nil {
		// Dirty stays set; the next successful save carries these changes.
		e.logger.Warn("auto-save failed", zap.Error(err))
	}
}

func (e *Engine) save(ctx context.Context) error {
	// Hold saveMu across the whole save, snapshot included: the snapshot is
	// taken after any earlier save has committed, so writes reach the backend
	// in mutation order and the last write always carries the newest state.
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	if e.destroyed || e.saver == nil || !e.dirty {
		e.mu.Unlock()
		return nil
	}
	seq := e.mutationSeq
	coreData := domain.CloneRows(e.coreData)
	estimateID := e.estimateID
	e.mu.Unlock()

	err := e.saver.Save(ctx, estimateID, coreData)

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return err
	}
	if err != nil {
		e.lastSaveError = err
		state := e.stateLocked()
		e.mu.Unlock()
		if e.callbacks.OnStateChange != nil {
			e.callbacks.OnStateChange(state)
		}
		if e.callbacks.OnSaveError != nil {
			e.callbacks.OnSaveError(err)
		}
		return err
	}
	// Clear dirty only if nothing mutated while the save was in flight.
	if e.mutationSeq == seq {
		e.dirty = false
	}
	e.lastSaved = time.Now()
	e.lastSaveError = nil
	state := e.stateLocked()
	e.mu.Unlock()

	if e.callbacks.OnStateChange != nil {
		e.callbacks.OnStateChange(state)
	}
	// Saved data is always validated, even inside the debounce window.
	e.runValidation()
	return nil
}
