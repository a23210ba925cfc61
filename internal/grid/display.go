package grid

import "github.com/straye-as/estimate-grid/internal/domain"

// ApplyDisplay attaches per-row static field options based on product-type
// configuration. Resolution order per field: inline option list, then the
// shared option set named by data_source, otherwise free text (an empty list,
// not absence). Option values project through the field's value key (default
// "value"); display labels, when the set carries them, project through the
// display key (default "label"). Rows without a product type get no options
// at all. A data_source key missing from the cache resolves to an empty list
// rather than failing.
func ApplyDisplay(rows []DerivedRow, ctx DisplayContext) []DerivedRow {
	out := make([]DerivedRow, len(rows))
	for i, row := range rows {
		out[i] = row
		out[i].StaticFieldOptions, out[i].OptionLabels = resolveFieldOptions(row.ProductTypeID, ctx)
	}
	return out
}

func resolveFieldOptions(productTypeID string, ctx DisplayContext) (map[string][]string, map[string]map[string]string) {
	options := map[string][]string{}
	labels := map[string]map[string]string{}
	if productTypeID == "" {
		return options, labels
	}
	pt, ok := ctx.ProductTypes[productTypeID]
	if !ok {
		return options, labels
	}
	for _, field := range pt.AllFields() {
		values, fieldLabels := resolveOptions(field, ctx.StaticOptions)
		options[field.Name] = values
		if len(fieldLabels) > 0 {
			labels[field.Name] = fieldLabels
		}
	}
	return options, labels
}

func resolveOptions(field domain.FieldConfig, cache map[string][]domain.OptionRecord) ([]string, map[string]string) {
	if len(field.Options) > 0 {
		return append([]string(nil), field.Options...), nil
	}
	if field.DataSource == "" {
		return []string{}, nil
	}
	records, ok := cache[field.DataSource]
	if !ok {
		return []string{}, nil
	}
	valueKey := field.ValueKey
	if valueKey == "" {
		valueKey = "value"
	}
	displayKey := field.DisplayKey
	if displayKey == "" {
		displayKey = "label"
	}
	out := make([]string, 0, len(records))
	var labels map[string]string
	for _, rec := range records {
		value, ok := rec[valueKey]
		if !ok || value == "" {
			continue
		}
		out = append(out, value)
		if label, ok := rec[displayKey]; ok && label != "" {
			if labels == nil {
				labels = map[string]string{}
			}
			labels[value] = label
		}
	}
	return out, labels
}
