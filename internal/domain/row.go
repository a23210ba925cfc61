package domain

// RowType represents the kind of line a row is in an estimate grid
type RowType string

const (
	RowTypeMain         RowType = "main"
	RowTypeSubItem      RowType = "subItem"
	RowTypeContinuation RowType = "continuation"
)

// IsValid checks if the RowType is a valid enum value
func (rt RowType) IsValid() bool {
	switch rt {
	case RowTypeMain, RowTypeSubItem, RowTypeContinuation:
		return true
	}
	return false
}

// GenericFieldNames are the field names every row can carry regardless of
// product type. Product-type configs may add or constrain fields on top.
var GenericFieldNames = []string{
	"quantity",
	"field1", "field2", "field3", "field4", "field5",
	"field6", "field7", "field8", "field9", "field10",
}

// Row is one line of an estimate's core data: a product line, a sub-item of a
// product, or a continuation line extending a preceding product's content.
// Row order within the owning list is the sole source of truth for hierarchy;
// there is no persisted order or parent field on the row itself.
type Row struct {
	ID              string
	Type            RowType
	ProductTypeID   string // empty until the user assigns a product type
	ProductTypeName string
	Data            map[string]string
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := r
	out.Data = make(map[string]string, len(r.Data))
	for k, v := range r.Data {
		out.Data[k] = v
	}
	return out
}

// CloneRows returns a deep copy of a core-data list.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// FieldConfig describes one editable field of a product type. A field either
// carries an inline option list, references a shared option set by DataSource,
// or is free text.
type FieldConfig struct {
	Name       string   `json:"name"`
	Label      string   `json:"label,omitempty"`
	Required   bool     `json:"required,omitempty"`
	Numeric    bool     `json:"numeric,omitempty"`
	Default    string   `json:"default,omitempty"`
	Options    []string `json:"options,omitempty"`
	DataSource string   `json:"data_source,omitempty"`
	ValueKey   string   `json:"value_key,omitempty"`
	DisplayKey string   `json:"display_key,omitempty"`
}

// ProductType is the configuration for one product category. Fields are grouped
// in display rows, matching how the configuration is authored.
type ProductType struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Fields   [][]FieldConfig `json:"fields"`
}

// AllFields returns the flattened field configs across all groups.
func (pt ProductType) AllFields() []FieldConfig {
	var out []FieldConfig
	for _, group := range pt.Fields {
		out = append(out, group...)
	}
	return out
}

// OptionRecord is one entry of a shared option set, keyed by arbitrary column
// names so a field config can project value/display columns.
type OptionRecord map[string]string

// CustomerPreferences carries the customer-specific inputs the pricing context
// is built with. The pricing formulas themselves live outside this module.
type CustomerPreferences struct {
	CustomerID      string
	PreferredUnits  string
	DiscountPercent float64
	TaxExempt       bool
}

// PricingRow is the per-row slice of the pricing context.
type PricingRow struct {
	RowID         string
	ProductTypeID string
	Quantity      float64
	UnitRate      float64
	HasRate       bool
}

// PricingContext is the opaque output handed to pricing after each validation
// run. Consumers own the actual price/tax math.
type PricingContext struct {
	EstimateID  string
	Rows        []PricingRow
	Preferences CustomerPreferences
}
