package domain

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue points at one problem on one candidate row.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Row      int      `json:"row"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

// ValidationResult partitions issues by severity. Errors block commit of the
// affected record; warnings are advisory only.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// HasErrors reports whether any blocking issue was found.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorRows returns the set of source rows carrying at least one error.
func (r ValidationResult) ErrorRows() map[int]bool {
	rows := make(map[int]bool, len(r.Errors))
	for _, issue := range r.Errors {
		rows[issue.Row] = true
	}
	return rows
}
