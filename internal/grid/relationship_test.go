package grid_test

import (
	"testing"

	"github.com/straye-as/estimate-grid/internal/domain"
	"github.com/straye-as/estimate-grid/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id string, rowType domain.RowType) domain.Row {
	return domain.Row{ID: id, Type: rowType, Data: map[string]string{}}
}

func TestDeriveRelationships_Numbering(t *testing.T) {
	rows := []domain.Row{
		row("a", domain.RowTypeMain),
		row("b", domain.RowTypeSubItem),
		row("c", domain.RowTypeSubItem),
		row("d", domain.RowTypeMain),
		row("e", domain.RowTypeContinuation),
		row("f", domain.RowTypeSubItem),
	}

	derived := grid.DeriveRelationships(rows)
	require.Len(t, derived, 6)

	numbers := make([]string, len(derived))
	for i, d := range derived {
		numbers[i] = d.DisplayNumber
	}
	assert.Equal(t, []string{"1", "1.a", "1.b", "2", "", "2.a"}, numbers)
}

func TestDeriveRelationships_ParentAndChildren(t *testing.T) {
	rows := []domain.Row{
		row("m1", domain.RowTypeMain),
		row("s1", domain.RowTypeSubItem),
		row("c1", domain.RowTypeContinuation),
		row("m2", domain.RowTypeMain),
		row("s2", domain.RowTypeSubItem),
	}

	derived := grid.DeriveRelationships(rows)

	assert.Empty(t, derived[0].ParentID)
	assert.Equal(t, []string{"s1", "c1"}, derived[0].ChildIDs)
	assert.Equal(t, "m1", derived[1].ParentID)
	assert.Equal(t, "m1", derived[2].ParentID)
	assert.Equal(t, []string{"s2"}, derived[3].ChildIDs)
	assert.Equal(t, "m2", derived[4].ParentID)

	assert.Equal(t, 0, derived[0].NestingLevel)
	assert.Equal(t, 1, derived[1].NestingLevel)
}

func TestDeriveRelationships_OrphanDoesNotPanic(t *testing.T) {
	rows := []domain.Row{
		row("orphan", domain.RowTypeSubItem),
		row("m1", domain.RowTypeMain),
	}

	var derived []grid.DerivedRow
	require.NotPanics(t, func() {
		derived = grid.DeriveRelationships(rows)
	})

	assert.Empty(t, derived[0].ParentID)
	assert.Empty(t, derived[0].DisplayNumber)
	assert.False(t, derived[0].ShowRowNumber)
	assert.Equal(t, "1", derived[1].DisplayNumber)
}

func TestDeriveRelationships_OrphanContinuation(t *testing.T) {
	rows := []domain.Row{
		row("c1", domain.RowTypeContinuation),
	}

	derived := grid.DeriveRelationships(rows)
	assert.Empty(t, derived[0].ParentID)
	assert.Empty(t, derived[0].DisplayNumber)
	assert.Empty(t, derived[0].HierarchyPath)
}

func TestDeriveRelationships_ContinuationUnnumbered(t *testing.T) {
	rows := []domain.Row{
		row("m1", domain.RowTypeMain),
		row("c1", domain.RowTypeContinuation),
		row("s1", domain.RowTypeSubItem),
	}

	derived := grid.DeriveRelationships(rows)

	// Continuations inherit the parent path but never number
	assert.Empty(t, derived[1].DisplayNumber)
	assert.Equal(t, 0, derived[1].LogicalNumber)
	assert.Equal(t, "1", derived[1].HierarchyPath)
	// The continuation does not consume a sub-item letter
	assert.Equal(t, "1.a", derived[2].DisplayNumber)
}

func TestDeriveRelationships_Idempotent(t *testing.T) {
	rows := []domain.Row{
		row("m1", domain.RowTypeMain),
		row("s1", domain.RowTypeSubItem),
		row("m2", domain.RowTypeMain),
		row("c1", domain.RowTypeContinuation),
	}

	first := grid.DeriveRelationships(rows)
	second := grid.DeriveRelationships(rows)
	assert.Equal(t, first, second)
}

func TestDeriveRelationships_DoesNotMutateInput(t *testing.T) {
	rows := []domain.Row{
		row("m1", domain.RowTypeMain),
		row("s1", domain.RowTypeSubItem),
	}
	rows[0].Data["quantity"] = "2"

	derived := grid.DeriveRelationships(rows)
	derived[0].Data["quantity"] = "99"

	assert.Equal(t, "2", rows[0].Data["quantity"])
}

func TestDeriveRelationships_ManySubItems(t *testing.T) {
	rows := []domain.Row{row("m1", domain.RowTypeMain)}
	for i := 0; i < 28; i++ {
		rows = append(rows, row(string(rune('A'+i)), domain.RowTypeSubItem))
	}

	derived := grid.DeriveRelationships(rows)

	assert.Equal(t, "1.a", derived[1].DisplayNumber)
	assert.Equal(t, "1.z", derived[26].DisplayNumber)
	assert.Equal(t, "1.aa", derived[27].DisplayNumber)
	assert.Equal(t, "1.ab", derived[28].DisplayNumber)
}

func TestChildrenOf(t *testing.T) {
	rows := []domain.Row{
		row("m1", domain.RowTypeMain),
		row("s1", domain.RowTypeSubItem),
		row("c1", domain.RowTypeContinuation),
		row("m2", domain.RowTypeMain),
	}

	assert.Equal(t, []int{1, 2}, grid.ChildrenOf(rows, 0))
	assert.Nil(t, grid.ChildrenOf(rows, 1))
	assert.Nil(t, grid.ChildrenOf(rows, 3))
	assert.Nil(t, grid.ChildrenOf(rows, -1))
}
