package grid

import (
	"fmt"

	"github.com/straye-as/estimate-grid/internal/domain"
)

// DeriveRelationships derives parent/child links and hierarchical numbering
// from a flat ordered row list. Two linear passes: one for parent/child links,
// one for numbering. Main rows get consecutive integers; sub-items get a
// per-parent letter suffix ("2.b"); continuation rows never carry a number of
// their own.
//
// Orphans (a sub-item or continuation with no preceding main row) keep an
// empty ParentID and an empty display number. That state is deliberately
// representable so validation can surface it; it is never silently repaired.
func DeriveRelationships(rows []domain.Row) []DerivedRow {
	derived := make([]DerivedRow, len(rows))

	// Pass 1: parent links and child collection. The parent of a sub-item or
	// continuation is the nearest preceding main row.
	lastMain := -1
	for i, row := range rows {
		derived[i] = DerivedRow{Row: row.Clone()}
		if row.Type == domain.RowTypeMain {
			lastMain = i
			continue
		}
		if lastMain >= 0 {
			derived[i].ParentID = rows[lastMain].ID
			derived[lastMain].ChildIDs = append(derived[lastMain].ChildIDs, row.ID)
			derived[i].NestingLevel = 1
		}
	}

	// Pass 2a: consecutive main numbering, independent of sub-items.
	mainNumbers := make(map[string]int)
	nextMain := 1
	for i := range derived {
		if derived[i].Type != domain.RowTypeMain {
			continue
		}
		derived[i].LogicalNumber = nextMain
		derived[i].DisplayNumber = fmt.Sprintf("%d", nextMain)
		derived[i].HierarchyPath = derived[i].DisplayNumber
		derived[i].ShowRowNumber = true
		mainNumbers[derived[i].ID] = nextMain
		nextMain++
	}

	// Pass 2b: per-parent sub-item counters mapped to letters. Continuations
	// inherit the parent's path but stay unnumbered.
	subCounters := make(map[string]int)
	for i := range derived {
		switch derived[i].Type {
		case domain.RowTypeSubItem:
			parent := derived[i].ParentID
			if parent == "" {
				continue // orphan: no number, surfaced downstream
			}
			mainNumber, ok := mainNumbers[parent]
			if !ok {
				continue
			}
			subCounters[parent]++
			derived[i].LogicalNumber = subCounters[parent]
			derived[i].DisplayNumber = fmt.Sprintf("%d.%s", mainNumber, subItemLetter(subCounters[parent]))
			derived[i].HierarchyPath = derived[i].DisplayNumber
			derived[i].ShowRowNumber = true
		case domain.RowTypeContinuation:
			if parent := derived[i].ParentID; parent != "" {
				if mainNumber, ok := mainNumbers[parent]; ok {
					derived[i].HierarchyPath = fmt.Sprintf("%d", mainNumber)
				}
			}
		}
	}

	return derived
}

// subItemLetter maps a 1-based sub-item counter to its letter suffix:
// 1→a, 2→b, ... 26→z, 27→aa.
func subItemLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('a' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// ChildrenOf scans forward from the row at index until the next main row and
// returns the indexes of the sub-items and continuations encountered. Helper
// for operations that need positional (not just id-based) child lookup.
func ChildrenOf(rows []domain.Row, index int) []int {
	if index < 0 || index >= len(rows) || rows[index].Type != domain.RowTypeMain {
		return nil
	}
	var out []int
	for i := index + 1; i < len(rows); i++ {
		if rows[i].Type == domain.RowTypeMain {
			break
		}
		out = append(out, i)
	}
	return out
}
