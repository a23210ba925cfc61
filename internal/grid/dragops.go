package grid

import "github.com/straye-as/estimate-grid/internal/domain"

// MoveRows removes the dragged ids as one block (relative order preserved)
// and reinserts them immediately above or below the target row. The dragged
// set is supplied complete by the interaction layer — a main row arrives here
// together with all its children; this function does not re-derive cohesion.
//
// Degenerate inputs (unknown target, target inside the dragged set, empty
// drag set) return the list unchanged.
func MoveRows(rows []domain.Row, draggedRowIDs []string, targetRowID string, position DropPosition) []domain.Row {
	if len(draggedRowIDs) == 0 {
		return domain.CloneRows(rows)
	}

	dragged := make(map[string]struct{}, len(draggedRowIDs))
	for _, id := range draggedRowIDs {
		dragged[id] = struct{}{}
	}
	if _, insideSet := dragged[targetRowID]; insideSet {
		return domain.CloneRows(rows)
	}

	var block []domain.Row
	remaining := make([]domain.Row, 0, len(rows))
	for _, r := range rows {
		if _, isDragged := dragged[r.ID]; isDragged {
			block = append(block, r.Clone())
		} else {
			remaining = append(remaining, r.Clone())
		}
	}
	if len(block) == 0 {
		return remaining
	}

	target := -1
	for i, r := range remaining {
		if r.ID == targetRowID {
			target = i
			break
		}
	}
	if target < 0 {
		return domain.CloneRows(rows)
	}

	at := target
	if position == DropBelow {
		at = target + 1
	}

	out := make([]domain.Row, 0, len(rows))
	out = append(out, remaining[:at]...)
	out = append(out, block...)
	out = append(out, remaining[at:]...)
	return out
}
