package importer

import (
	"fmt"
	"time"

	"github.com/careops/measuresync/internal/dates"
	"github.com/careops/measuresync/internal/domain"
	"github.com/careops/measuresync/internal/rules"
)

// earliestPlausibleYear bounds clinically plausible dates of birth and status
// dates; anything earlier is almost certainly a transcription artifact.
const earliestPlausibleYear = 1900

// Validator checks transformed candidate records. Errors block commit of the
// affected record; warnings are advisory. Validate never mutates its input and
// is deterministic for a fixed clock.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator on the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorAt creates a validator with an injected clock for tests.
func NewValidatorAt(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate applies the rule catalog to every record.
func (v *Validator) Validate(records []domain.MeasureRecord) domain.ValidationResult {
	var result domain.ValidationResult
	today := v.now().UTC()

	for _, record := range records {
		row := record.SourceRow

		if record.PatientName == "" {
			result.Errors = append(result.Errors, domain.ValidationIssue{
				Severity: domain.SeverityError, Row: row, Field: "patientName",
				Message: "patient name is required",
			})
		}

		if record.DateOfBirth == nil {
			result.Errors = append(result.Errors, domain.ValidationIssue{
				Severity: domain.SeverityError, Row: row, Field: "dateOfBirth",
				Message: "date of birth is required to identify the patient",
			})
		} else {
			if record.DateOfBirth.After(today) {
				result.Errors = append(result.Errors, domain.ValidationIssue{
					Severity: domain.SeverityError, Row: row, Field: "dateOfBirth",
					Message: fmt.Sprintf("date of birth %s is in the future", dates.ToCanonicalString(record.DateOfBirth)),
				})
			}
			if record.DateOfBirth.Year() < earliestPlausibleYear {
				result.Warnings = append(result.Warnings, domain.ValidationIssue{
					Severity: domain.SeverityWarning, Row: row, Field: "dateOfBirth",
					Message: fmt.Sprintf("date of birth %s is implausibly old", dates.ToCanonicalString(record.DateOfBirth)),
				})
			}
		}

		if record.PatientLevel() {
			continue
		}

		if record.RequestType == "" {
			result.Errors = append(result.Errors, domain.ValidationIssue{
				Severity: domain.SeverityError, Row: row, Field: "requestType",
				Message: fmt.Sprintf("measure %q has no request type", record.QualityMeasure),
			})
		}

		if record.MeasureStatus == "" {
			result.Warnings = append(result.Warnings, domain.ValidationIssue{
				Severity: domain.SeverityWarning, Row: row, Field: "measureStatus",
				Message: fmt.Sprintf("measure %q has no status", record.QualityMeasure),
			})
		} else if !rules.KnownStatus(record.MeasureStatus) {
			result.Warnings = append(result.Warnings, domain.ValidationIssue{
				Severity: domain.SeverityWarning, Row: row, Field: "measureStatus",
				Message: fmt.Sprintf("status %q is not in the recognized vocabulary", record.MeasureStatus),
			})
		}

		if record.StatusDate != nil {
			if record.StatusDate.After(today.AddDate(0, 0, 1)) {
				result.Warnings = append(result.Warnings, domain.ValidationIssue{
					Severity: domain.SeverityWarning, Row: row, Field: "statusDate",
					Message: fmt.Sprintf("status date %s is in the future", dates.ToCanonicalString(record.StatusDate)),
				})
			}
			if record.StatusDate.Year() < earliestPlausibleYear {
				result.Warnings = append(result.Warnings, domain.ValidationIssue{
					Severity: domain.SeverityWarning, Row: row, Field: "statusDate",
					Message: fmt.Sprintf("status date %s is implausibly old", dates.ToCanonicalString(record.StatusDate)),
				})
			}
		}

		if record.DueDate != nil && record.StatusDate != nil && record.DueDate.Before(*record.StatusDate) {
			result.Warnings = append(result.Warnings, domain.ValidationIssue{
				Severity: domain.SeverityWarning, Row: row, Field: "dueDate",
				Message: "computed due date precedes the status date",
			})
		}
	}

	return result
}
