package validation

// Severity classifies an issue. Errors block approval flows; warnings are
// advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding, addressed to a cell (row id + field)
// or to the grid structure (empty field).
type Issue struct {
	RowID    string
	Field    string
	Rule     string
	Severity Severity
	Message  string
}

// ResultSet holds the outcome of one validation run, keyed for per-cell and
// per-structure lookup.
type ResultSet struct {
	cells      map[string]map[string][]Issue
	structural []Issue
	errors     int
	warnings   int
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{cells: map[string]map[string][]Issue{}}
}

func (rs *ResultSet) add(issue Issue) {
	switch issue.Severity {
	case SeverityError:
		rs.errors++
	case SeverityWarning:
		rs.warnings++
	}
	if issue.Field == "" {
		rs.structural = append(rs.structural, issue)
		return
	}
	if rs.cells[issue.RowID] == nil {
		rs.cells[issue.RowID] = map[string][]Issue{}
	}
	rs.cells[issue.RowID][issue.Field] = append(rs.cells[issue.RowID][issue.Field], issue)
}

// CellIssues returns the issues recorded for one cell.
func (rs *ResultSet) CellIssues(rowID, field string) []Issue {
	return rs.cells[rowID][field]
}

// RowIssues returns all cell issues for a row, in no particular field order.
func (rs *ResultSet) RowIssues(rowID string) []Issue {
	var out []Issue
	for _, issues := range rs.cells[rowID] {
		out = append(out, issues...)
	}
	for _, issue := range rs.structural {
		if issue.RowID == rowID {
			out = append(out, issue)
		}
	}
	return out
}

// StructuralIssues returns issues not tied to a specific cell.
func (rs *ResultSet) StructuralIssues() []Issue {
	return append([]Issue(nil), rs.structural...)
}

// ErrorCount returns the number of error-severity issues.
func (rs *ResultSet) ErrorCount() int { return rs.errors }

// WarningCount returns the number of warning-severity issues.
func (rs *ResultSet) WarningCount() int { return rs.warnings }

// HasBlockingErrors reports whether any error-severity issue exists.
func (rs *ResultSet) HasBlockingErrors() bool { return rs.errors > 0 }
