package grid

import "github.com/straye-as/estimate-grid/internal/domain"

// ApplyInteraction derives drag eligibility, editable-field sets, and row
// actions, gated by read-only state. Rules in priority order:
//
//  1. Read-only (global flag or readonly edit mode) switches everything off.
//  2. Continuation rows never drag, delete, or duplicate on their own; those
//     actions belong to the owning main row. They remain drop targets.
//  3. Main rows drag cohesively: the drag set is the row plus all its
//     children.
//  4. Sub-items drag individually.
//
// Drop zones currently accept drops above and below every row uniformly.
func ApplyInteraction(rows []DerivedRow, ctx InteractionContext) []DerivedRow {
	locked := ctx.Locked()
	out := make([]DerivedRow, len(rows))
	for i, row := range rows {
		out[i] = row
		r := &out[i]

		if locked {
			r.IsDraggable = false
			r.IsDropTarget = false
			r.DropZone = DropZoneNone
			r.DraggedRowIDs = nil
			r.EditableFields = []string{}
			r.CanDelete = false
			r.CanDuplicate = false
			r.CanAddChild = false
			continue
		}

		r.EditableFields = editableFields(row)
		r.IsDropTarget = true
		r.DropZone = DropZoneBoth

		switch row.Type {
		case domain.RowTypeContinuation:
			r.IsDraggable = false
			r.DraggedRowIDs = nil
			r.CanDelete = false
			r.CanDuplicate = false
			r.CanAddChild = false
		case domain.RowTypeMain:
			r.IsDraggable = true
			r.DraggedRowIDs = append([]string{row.ID}, row.ChildIDs...)
			r.CanDelete = true
			r.CanDuplicate = true
			r.CanAddChild = true
		default:
			r.IsDraggable = true
			r.DraggedRowIDs = []string{row.ID}
			r.CanDelete = true
			r.CanDuplicate = true
			r.CanAddChild = false
		}
	}
	return out
}

// editableFields is the union of option-constrained fields, fields already
// holding data, and the fixed generic field names.
func editableFields(row DerivedRow) []string {
	fields := make([]string, 0, len(row.StaticFieldOptions)+len(row.Data)+len(domain.GenericFieldNames))
	for name := range row.StaticFieldOptions {
		fields = append(fields, name)
	}
	for name := range row.Data {
		fields = append(fields, name)
	}
	fields = append(fields, domain.GenericFieldNames...)
	return sortedUnique(fields)
}
