// Package grid implements the layered recalculation engine behind the job
// estimation grid. Core data is a flat ordered list of rows; parent/child
// hierarchy, display options, and interaction capabilities are derived from it
// in three pure stages (relationship, display, interaction) after every
// structural mutation. Validation and auto-save run debounced off the back of
// each recalculation.
package grid

import (
	"sort"

	"github.com/straye-as/estimate-grid/internal/domain"
)

// EditMode controls interaction-layer capabilities independent of core data
type EditMode string

const (
	EditModeEditing  EditMode = "editing"
	EditModeReadOnly EditMode = "readonly"
)

// DropPosition says where relative to the target a dragged block lands
type DropPosition string

const (
	DropAbove DropPosition = "above"
	DropBelow DropPosition = "below"
)

// DropZone describes which edges of a row accept a drop
type DropZone string

const (
	DropZoneBoth DropZone = "both"
	DropZoneNone DropZone = "none"
)

// DragState tracks an in-flight drag. Empty when nothing is dragged.
type DragState struct {
	Active        bool
	SourceRowID   string
	DraggedRowIDs []string
}

// DerivedRow is a core row augmented with everything the three layers compute.
// All derived fields are recomputable from core data plus static context at
// any time; none of them are authoritative.
type DerivedRow struct {
	domain.Row

	// Relationship layer
	ParentID      string // empty = no resolvable parent
	ChildIDs      []string
	LogicalNumber int // 0 = unnumbered
	HierarchyPath string
	DisplayNumber string
	ShowRowNumber bool
	NestingLevel  int

	// Display layer
	StaticFieldOptions map[string][]string
	// OptionLabels carries display labels per field and option value,
	// projected through the field's display key when the backing option set
	// provides one. Fields without labels simply have no entry.
	OptionLabels map[string]map[string]string

	// Interaction layer
	IsDraggable    bool
	IsDropTarget   bool
	DropZone       DropZone
	DraggedRowIDs  []string
	EditableFields []string
	CanDelete      bool
	CanDuplicate   bool
	CanAddChild    bool
}

// Clone returns a deep copy of the derived row.
func (d DerivedRow) Clone() DerivedRow {
	out := d
	out.Row = d.Row.Clone()
	out.ChildIDs = append([]string(nil), d.ChildIDs...)
	out.DraggedRowIDs = append([]string(nil), d.DraggedRowIDs...)
	out.EditableFields = append([]string(nil), d.EditableFields...)
	if d.StaticFieldOptions != nil {
		out.StaticFieldOptions = make(map[string][]string, len(d.StaticFieldOptions))
		for field, opts := range d.StaticFieldOptions {
			out.StaticFieldOptions[field] = append([]string(nil), opts...)
		}
	}
	if d.OptionLabels != nil {
		out.OptionLabels = make(map[string]map[string]string, len(d.OptionLabels))
		for field, labels := range d.OptionLabels {
			copied := make(map[string]string, len(labels))
			for value, label := range labels {
				copied[value] = label
			}
			out.OptionLabels[field] = copied
		}
	}
	return out
}

// CloneDerivedRows returns a deep copy of a derived row list.
func CloneDerivedRows(rows []DerivedRow) []DerivedRow {
	out := make([]DerivedRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// DisplayContext is the static configuration the display layer resolves
// options against.
type DisplayContext struct {
	ProductTypes  map[string]domain.ProductType
	StaticOptions map[string][]domain.OptionRecord
}

// NewDisplayContext indexes product types by id for layer lookups.
func NewDisplayContext(types []domain.ProductType, options map[string][]domain.OptionRecord) DisplayContext {
	indexed := make(map[string]domain.ProductType, len(types))
	for _, pt := range types {
		indexed[pt.ID] = pt
	}
	return DisplayContext{ProductTypes: indexed, StaticOptions: options}
}

// InteractionContext is the mode state the interaction layer evaluates
// capabilities under.
type InteractionContext struct {
	ReadOnly bool
	EditMode EditMode
	Drag     DragState
}

// Locked reports whether all editing capabilities are off.
func (c InteractionContext) Locked() bool {
	return c.ReadOnly || c.EditMode == EditModeReadOnly
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
