package grid

import (
	"github.com/google/uuid"
	"github.com/straye-as/estimate-grid/internal/domain"
)

// Operations implements the structural row mutations. Every method takes the
// current core-data list and returns a new one; inputs are never mutated.
// Bound to the product-type configuration because product-type changes and
// duplication apply type-dependent defaults.
type Operations struct {
	productTypes map[string]domain.ProductType
}

// NewOperations builds an operations module over the given product types.
func NewOperations(types []domain.ProductType) *Operations {
	indexed := make(map[string]domain.ProductType, len(types))
	for _, pt := range types {
		indexed[pt.ID] = pt
	}
	return &Operations{productTypes: indexed}
}

// InsertRow inserts a freshly created row immediately after afterIndex
// (-1 prepends). When productTypeID is set it is recorded on the row, but
// product-type initialization is the caller's follow-up via
// ApplyProductTypeDefaults.
func (o *Operations) InsertRow(rows []domain.Row, afterIndex int, rowType domain.RowType, productTypeID string) ([]domain.Row, domain.Row) {
	row := domain.Row{
		ID:            uuid.NewString(),
		Type:          rowType,
		ProductTypeID: productTypeID,
		Data:          map[string]string{},
	}
	if pt, ok := o.productTypes[productTypeID]; ok {
		row.ProductTypeName = pt.Name
	}

	at := afterIndex + 1
	if at < 0 {
		at = 0
	}
	if at > len(rows) {
		at = len(rows)
	}

	out := make([]domain.Row, 0, len(rows)+1)
	out = append(out, domain.CloneRows(rows[:at])...)
	out = append(out, row)
	out = append(out, domain.CloneRows(rows[at:])...)
	return out, row
}

// DeleteRow removes the row and, for a main row, all of its children as
// reported by the relationship layer's last computation. Unknown ids are a
// no-op.
func (o *Operations) DeleteRow(rows []domain.Row, derived []DerivedRow, rowID string) []domain.Row {
	doomed := map[string]struct{}{rowID: {}}
	for _, d := range derived {
		if d.ID == rowID && d.Type == domain.RowTypeMain {
			for _, childID := range d.ChildIDs {
				doomed[childID] = struct{}{}
			}
		}
	}

	out := make([]domain.Row, 0, len(rows))
	for _, r := range rows {
		if _, gone := doomed[r.ID]; gone {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// DuplicateRow clones the row — and, for a main row, its children — with
// fresh ids, inserted contiguously right after the original block with
// relative order preserved.
func (o *Operations) DuplicateRow(rows []domain.Row, derived []DerivedRow, rowID string) []domain.Row {
	src := -1
	for i, r := range rows {
		if r.ID == rowID {
			src = i
			break
		}
	}
	if src < 0 {
		return domain.CloneRows(rows)
	}

	block := []int{src}
	if rows[src].Type == domain.RowTypeMain {
		for _, d := range derived {
			if d.ID != rowID {
				continue
			}
			for _, childID := range d.ChildIDs {
				for i, r := range rows {
					if r.ID == childID {
						block = append(block, i)
					}
				}
			}
		}
	}

	insertAt := block[len(block)-1] + 1
	clones := make([]domain.Row, len(block))
	for i, idx := range block {
		clones[i] = rows[idx].Clone()
		clones[i].ID = uuid.NewString()
	}

	out := make([]domain.Row, 0, len(rows)+len(clones))
	out = append(out, domain.CloneRows(rows[:insertAt])...)
	out = append(out, clones...)
	out = append(out, domain.CloneRows(rows[insertAt:])...)
	return out
}

// UpdateRowProductType assigns a product type to a row and applies the
// type's field defaults. A structural change: it alters available fields and
// thus always goes through full recalculation.
func (o *Operations) UpdateRowProductType(rows []domain.Row, rowID, productTypeID, productTypeName string) []domain.Row {
	out := domain.CloneRows(rows)
	for i := range out {
		if out[i].ID != rowID {
			continue
		}
		out[i].ProductTypeID = productTypeID
		out[i].ProductTypeName = productTypeName
		if pt, ok := o.productTypes[productTypeID]; ok && productTypeName == "" {
			out[i].ProductTypeName = pt.Name
		}
		out[i] = o.ApplyProductTypeDefaults(out[i])
	}
	return out
}

// UpdateRowFields applies field updates to one row's data. The only
// non-structural mutation; order and type are untouched.
func (o *Operations) UpdateRowFields(rows []domain.Row, rowID string, updates map[string]string) []domain.Row {
	out := domain.CloneRows(rows)
	for i := range out {
		if out[i].ID != rowID {
			continue
		}
		for k, v := range updates {
			out[i].Data[k] = v
		}
	}
	return out
}

// ApplyProductTypeDefaults fills field defaults from the row's product-type
// config without overwriting values the row already has. Applied on
// product-type assignment and re-applied per row on backend reload.
func (o *Operations) ApplyProductTypeDefaults(row domain.Row) domain.Row {
	pt, ok := o.productTypes[row.ProductTypeID]
	if !ok {
		return row
	}
	out := row.Clone()
	for _, field := range pt.AllFields() {
		if field.Default == "" {
			continue
		}
		if _, present := out.Data[field.Name]; !present {
			out.Data[field.Name] = field.Default
		}
	}
	return out
}
