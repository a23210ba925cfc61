package grid_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/estimate-grid/internal/domain"
	"github.com/straye-as/estimate-grid/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	mu           sync.Mutex
	calls        int
	lastRows     []domain.Row
	blocking     bool
	errCount     int
	productTypes []domain.ProductType
}

func (f *fakeValidator) ValidateGrid(_ context.Context, coreData []domain.Row, _ domain.CustomerPreferences, _ []grid.DerivedRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRows = coreData
	return nil
}

func (f *fakeValidator) HasBlockingErrors() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocking
}

func (f *fakeValidator) ErrorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errCount
}

func (f *fakeValidator) PricingContext() domain.PricingContext {
	return domain.PricingContext{}
}

func (f *fakeValidator) UpdateProductTypes(productTypes []domain.ProductType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productTypes = productTypes
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSaver struct {
	mu       sync.Mutex
	calls    int
	lastRows []domain.Row
	err      error
	onSave   func()
	entered  chan struct{} // receives one signal per Save call, before any gating
	gate     chan struct{} // when set, Save parks here before committing
}

func (f *fakeSaver) Save(_ context.Context, _ string, rows []domain.Row) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls++
	f.lastRows = rows
	err := f.err
	onSave := f.onSave
	f.mu.Unlock()
	if onSave != nil {
		onSave()
	}
	return err
}

func (f *fakeSaver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLoader struct {
	rows []domain.Row
	err  error
}

func (f *fakeLoader) LoadRows(context.Context, string) ([]domain.Row, error) {
	return f.rows, f.err
}

func newTestEngine(t *testing.T, cb grid.Callbacks) (*grid.Engine, *fakeValidator, *fakeSaver) {
	t.Helper()
	validator := &fakeValidator{}
	saver := &fakeSaver{}
	e := grid.NewEngine(grid.Config{
		EstimateID:      "est-1",
		ValidationDelay: 10 * time.Millisecond,
		AutoSaveDelay:   20 * time.Millisecond,
	}, validator, saver, cb, nil)
	t.Cleanup(e.Destroy)
	return e, validator, saver
}

func TestEngine_UpdateCoreDataRecalculates(t *testing.T) {
	var mu sync.Mutex
	var seen []grid.DerivedRow
	e, _, _ := newTestEngine(t, grid.Callbacks{
		OnRowsChange: func(rows []grid.DerivedRow) {
			mu.Lock()
			seen = rows
			mu.Unlock()
		},
	})

	e.UpdateCoreData([]domain.Row{
		row("m1", domain.RowTypeMain),
		row("s1", domain.RowTypeSubItem),
	}, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, "1", seen[0].DisplayNumber)
	assert.Equal(t, "1.a", seen[1].DisplayNumber)
	assert.Equal(t, "m1", seen[1].ParentID)
	assert.True(t, e.HasUnsavedChanges())
}

func TestEngine_DebounceCollapsesMutations(t *testing.T) {
	e, validator, saver := newTestEngine(t, grid.Callbacks{})
	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, &grid.UpdateOptions{MarkAsDirty: false})
	time.Sleep(50 * time.Millisecond)
	startValidations := validator.callCount()

	for i := 0; i < 5; i++ {
		e.UpdateSingleRow("m1", map[string]string{"quantity": string(rune('1' + i))})
	}
	time.Sleep(100 * time.Millisecond)

	// Five rapid edits produce one validation run and one save, both seeing
	// the final state.
	assert.Equal(t, startValidations+2, validator.callCount()) // debounced run + post-save run
	assert.Equal(t, 1, saver.callCount())

	saver.mu.Lock()
	saved := saver.lastRows
	saver.mu.Unlock()
	require.Len(t, saved, 1)
	assert.Equal(t, "5", saved[0].Data["quantity"])
	assert.False(t, e.HasUnsavedChanges())
}

func TestEngine_FastPathMatchesFullRecalc(t *testing.T) {
	e, _, _ := newTestEngine(t, grid.Callbacks{})
	e.UpdateCoreData([]domain.Row{
		row("m1", domain.RowTypeMain),
		row("s1", domain.RowTypeSubItem),
	}, nil)

	e.UpdateSingleRow("s1", map[string]string{"quantity": "7"})
	fast := e.Rows()

	// A full replacement with the same core data must yield the same view.
	e.UpdateCoreData(e.CoreData(), nil)
	full := e.Rows()

	assert.Equal(t, full, fast)
	assert.Equal(t, "7", fast[1].Data["quantity"])
	assert.Equal(t, "1.a", fast[1].DisplayNumber)
}

func TestEngine_ReloadFromBackendNotDirty(t *testing.T) {
	e, _, saver := newTestEngine(t, grid.Callbacks{})
	loader := &fakeLoader{rows: []domain.Row{row("m1", domain.RowTypeMain)}}

	require.NoError(t, e.ReloadFromBackend(context.Background(), loader))
	assert.False(t, e.HasUnsavedChanges())
	assert.Len(t, e.Rows(), 1)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, saver.callCount())
}

func TestEngine_ReloadFromBackendError(t *testing.T) {
	e, _, _ := newTestEngine(t, grid.Callbacks{})
	loader := &fakeLoader{err: errors.New("backend down")}

	err := e.ReloadFromBackend(context.Background(), loader)
	require.Error(t, err)
	assert.Empty(t, e.Rows())
}

func TestEngine_SaveFailureKeepsDirty(t *testing.T) {
	var mu sync.Mutex
	var saveErr error
	e, _, saver := newTestEngine(t, grid.Callbacks{
		OnSaveError: func(err error) {
			mu.Lock()
			saveErr = err
			mu.Unlock()
		},
	})
	saver.err = errors.New("constraint violation")

	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, nil)
	time.Sleep(60 * time.Millisecond)

	assert.True(t, e.HasUnsavedChanges())
	mu.Lock()
	assert.EqualError(t, saveErr, "constraint violation")
	mu.Unlock()
	assert.EqualError(t, e.State().LastSaveError, "constraint violation")

	// Clearing the fault lets the next flush succeed and reset state.
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	require.NoError(t, e.Flush(context.Background()))
	assert.False(t, e.HasUnsavedChanges())
	assert.NoError(t, e.State().LastSaveError)
}

func TestEngine_MutationDuringSaveKeepsDirty(t *testing.T) {
	e, _, saver := newTestEngine(t, grid.Callbacks{})
	saver.onSave = func() {
		e.UpdateSingleRow("m1", map[string]string{"quantity": "9"})
	}

	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, nil)
	require.NoError(t, e.Flush(context.Background()))

	// The edit landed while the save was in flight, so it is still unsaved.
	assert.True(t, e.HasUnsavedChanges())
}

func TestEngine_SlowAutoSaveCannotOvershadowFlush(t *testing.T) {
	e, _, saver := newTestEngine(t, grid.Callbacks{})
	saver.entered = make(chan struct{}, 2)
	saver.gate = make(chan struct{})

	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, &grid.UpdateOptions{MarkAsDirty: false})
	e.UpdateSingleRow("m1", map[string]string{"quantity": "1"})

	// The debounced auto-save is now parked inside the saver
	<-saver.entered

	e.UpdateSingleRow("m1", map[string]string{"quantity": "2"})

	flushDone := make(chan error, 1)
	go func() { flushDone <- e.Flush(context.Background()) }()

	// Releasing the slow save must not let it win: the later save commits
	// after it and carries the newer snapshot.
	close(saver.gate)
	<-saver.entered
	require.NoError(t, <-flushDone)

	saver.mu.Lock()
	saved := saver.lastRows
	saver.mu.Unlock()
	require.Len(t, saved, 1)
	assert.Equal(t, "2", saved[0].Data["quantity"])
	assert.False(t, e.HasUnsavedChanges())
}

func TestEngine_FlushCleanIsNoOp(t *testing.T) {
	e, _, saver := newTestEngine(t, grid.Callbacks{})
	require.NoError(t, e.Flush(context.Background()))
	assert.Equal(t, 0, saver.callCount())
}

func TestEngine_DestroyCancelsPendingWork(t *testing.T) {
	validator := &fakeValidator{}
	saver := &fakeSaver{}
	e := grid.NewEngine(grid.Config{
		EstimateID:      "est-1",
		ValidationDelay: 10 * time.Millisecond,
		AutoSaveDelay:   20 * time.Millisecond,
	}, validator, saver, grid.Callbacks{}, nil)

	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, nil)
	e.Destroy()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, validator.callCount())
	assert.Equal(t, 0, saver.callCount())
	assert.Equal(t, grid.ErrEngineDestroyed, e.Flush(context.Background()))

	// Post-destroy mutations are ignored
	e.UpdateCoreData([]domain.Row{row("m2", domain.RowTypeMain)}, nil)
	assert.Empty(t, e.CoreData())
}

func TestEngine_SetEditModeLocksCapabilities(t *testing.T) {
	e, _, _ := newTestEngine(t, grid.Callbacks{})
	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, &grid.UpdateOptions{MarkAsDirty: false})

	e.SetEditMode(grid.EditModeReadOnly)
	rows := e.Rows()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsDraggable)
	assert.False(t, rows[0].CanDelete)
	assert.Empty(t, rows[0].EditableFields)

	e.SetEditMode(grid.EditModeEditing)
	rows = e.Rows()
	assert.True(t, rows[0].IsDraggable)
	assert.True(t, rows[0].CanDelete)
}

func TestEngine_InsertDeleteDuplicateMove(t *testing.T) {
	e, _, _ := newTestEngine(t, grid.Callbacks{})
	e.UpdateCoreData([]domain.Row{
		row("m1", domain.RowTypeMain),
		row("m2", domain.RowTypeMain),
	}, &grid.UpdateOptions{MarkAsDirty: false})

	subID := e.InsertRow(0, domain.RowTypeSubItem, "")
	require.NotEmpty(t, subID)
	rows := e.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "1.a", rows[1].DisplayNumber)

	e.DuplicateRow("m1")
	require.Len(t, e.Rows(), 5)

	e.DeleteRow("m1")
	rows = e.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0].DisplayNumber)

	e.MoveRows([]string{"m2"}, rows[0].ID, grid.DropAbove)
	moved := e.Rows()
	assert.Equal(t, "m2", moved[0].ID)
	assert.Equal(t, "1", moved[0].DisplayNumber)
	assert.True(t, e.HasUnsavedChanges())
}

func TestEngine_UpdateConfigPreferencesRevalidatesOnly(t *testing.T) {
	e, validator, saver := newTestEngine(t, grid.Callbacks{})
	e.UpdateCoreData([]domain.Row{row("m1", domain.RowTypeMain)}, &grid.UpdateOptions{MarkAsDirty: false})
	time.Sleep(40 * time.Millisecond)
	before := validator.callCount()

	e.UpdateConfig(grid.ConfigUpdate{
		Preferences: &domain.CustomerPreferences{CustomerID: "cust-1", DiscountPercent: 10},
	})
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, before+1, validator.callCount())
	assert.Equal(t, 0, saver.callCount())
}

func TestEngine_UpdateConfigProductTypesRecalculates(t *testing.T) {
	e, validator, _ := newTestEngine(t, grid.Callbacks{})
	start := []domain.Row{row("m1", domain.RowTypeMain)}
	start[0].ProductTypeID = "pt-sign"
	e.UpdateCoreData(start, &grid.UpdateOptions{MarkAsDirty: false})
	assert.Empty(t, e.Rows()[0].StaticFieldOptions)

	e.UpdateConfig(grid.ConfigUpdate{
		ProductTypes: []domain.ProductType{{
			ID: "pt-sign",
			Fields: [][]domain.FieldConfig{
				{{Name: "material", Options: []string{"aluminium"}}},
			},
		}},
	})

	opts := e.Rows()[0].StaticFieldOptions
	require.Contains(t, opts, "material")
	assert.Equal(t, []string{"aluminium"}, opts["material"])
	// Configuration changes never dirty the estimate itself
	assert.False(t, e.HasUnsavedChanges())

	// The validation collaborator sees the new configuration too
	validator.mu.Lock()
	defer validator.mu.Unlock()
	require.Len(t, validator.productTypes, 1)
	assert.Equal(t, "pt-sign", validator.productTypes[0].ID)
}
