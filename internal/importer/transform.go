package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/dates"
	"github.com/careops/measuresync/internal/domain"
	"github.com/careops/measuresync/internal/ingest"
	"github.com/careops/measuresync/internal/registry"
	"github.com/careops/measuresync/internal/rules"
)

// Canonical patient fields a profile's patientColumnMap may target.
const (
	patientFieldFullName    = "fullName"
	patientFieldFirstName   = "firstName"
	patientFieldLastName    = "lastName"
	patientFieldDateOfBirth = "dateOfBirth"
	patientFieldNotes       = "notes"
)

// Cell values commonly used by source systems for compliant / non-compliant
// measure states, folded before comparison.
var (
	compliantTokens = map[string]bool{
		"y": true, "yes": true, "true": true, "1": true,
		"complete": true, "completed": true, "compliant": true, "done": true,
	}
	nonCompliantTokens = map[string]bool{
		"n": true, "no": true, "false": true, "0": true,
		"due": true, "overdue": true, "incomplete": true,
		"not completed": true, "noncompliant": true, "non-compliant": true,
	}
)

// Transformer maps a parsed sheet into canonical measure records using one
// system profile plus the rule engine.
type Transformer struct {
	profile *registry.SystemProfile
	offsets rules.OffsetLookup
	prompts rules.PromptLookup
}

// NewTransformer wires a transformer for one profile. offsets and prompts may
// be nil to rely on the built-in catalogs.
func NewTransformer(profile *registry.SystemProfile, offsets rules.OffsetLookup, prompts rules.PromptLookup) *Transformer {
	if offsets == nil {
		offsets = rules.NewStaticOffsets()
	}
	return &Transformer{profile: profile, offsets: offsets, prompts: prompts}
}

// TransformResult carries the candidate records plus per-row warnings. Row
// failures never abort the batch; they degrade to warnings on that row.
type TransformResult struct {
	Records  []domain.MeasureRecord
	Warnings []domain.ValidationIssue
}

type measureDraft struct {
	mapping    registry.MeasureMapping
	status     string
	statusDate *time.Time
	tracking1  string
	tracking2  string
	tracking3  string
	notes      string
}

// Transform converts every sheet row into zero or more candidate records. A
// row with patient fields but no populated measure cells still yields one
// patient-level record so demographics can be upserted.
func (t *Transformer) Transform(sheet *ingest.Sheet, ownerID uuid.UUID) TransformResult {
	var result TransformResult

	unmappedWarned := make(map[string]bool)

	for rowIdx, row := range sheet.Rows {
		line := sheet.DataStartLine + rowIdx

		var firstName, lastName, fullName, notes string
		var dob *time.Time

		drafts := make(map[string]*measureDraft)
		var draftOrder []string

		for _, header := range sheet.Headers {
			value, present := row[header]
			if !present || t.profile.Skipped(header) {
				continue
			}

			if field, ok := t.profile.PatientField(header); ok {
				switch field {
				case patientFieldFullName:
					fullName = value
				case patientFieldFirstName:
					firstName = value
				case patientFieldLastName:
					lastName = value
				case patientFieldNotes:
					notes = value
				case patientFieldDateOfBirth:
					parsed := dates.Parse(value)
					if parsed.Date == nil {
						result.Warnings = append(result.Warnings, domain.ValidationIssue{
							Severity: domain.SeverityWarning,
							Row:      line,
							Field:    header,
							Message:  fmt.Sprintf("date of birth %q is not a recognizable date", value),
						})
						continue
					}
					dob = parsed.Date
				}
				continue
			}

			if mapping, ok := t.profile.MeasureColumn(header); ok {
				key := mapping.RequestType + "\x00" + mapping.QualityMeasure
				draft, exists := drafts[key]
				if !exists {
					draft = &measureDraft{mapping: mapping}
					drafts[key] = draft
					draftOrder = append(draftOrder, key)
				}
				t.fillDraft(draft, mapping.Field, header, value, line, &result.Warnings)
				continue
			}

			if !unmappedWarned[header] {
				unmappedWarned[header] = true
				result.Warnings = append(result.Warnings, domain.ValidationIssue{
					Severity: domain.SeverityWarning,
					Row:      line,
					Field:    header,
					Message:  fmt.Sprintf("column %q is not mapped for this system and was ignored", header),
				})
			}
		}

		name := strings.TrimSpace(fullName)
		if name == "" {
			name = strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
		}

		if len(drafts) == 0 {
			if name != "" || dob != nil {
				result.Records = append(result.Records, domain.MeasureRecord{
					PatientName: name,
					DateOfBirth: dob,
					Notes:       notes,
					OwnerID:     ownerID,
					SourceRow:   line,
				})
			}
			continue
		}

		sort.Strings(draftOrder)
		for _, key := range draftOrder {
			record := t.buildRecord(drafts[key], name, dob, notes, ownerID, line, &result.Warnings)
			result.Records = append(result.Records, record)
		}
	}

	result.Records = rules.FlagAll(result.Records)
	return result
}

func (t *Transformer) fillDraft(draft *measureDraft, field, header, value string, line int, warnings *[]domain.ValidationIssue) {
	switch field {
	case registry.FieldStatusDate:
		parsed := dates.Parse(value)
		if parsed.Date == nil {
			*warnings = append(*warnings, domain.ValidationIssue{
				Severity: domain.SeverityWarning,
				Row:      line,
				Field:    header,
				Message:  fmt.Sprintf("status date %q is not a recognizable date", value),
			})
			return
		}
		draft.statusDate = parsed.Date
	case registry.FieldTracking1:
		draft.tracking1 = value
	case registry.FieldTracking2:
		draft.tracking2 = value
	case registry.FieldTracking3:
		draft.tracking3 = value
	case registry.FieldNotes:
		draft.notes = value
	default:
		draft.status = value
	}
}

func (t *Transformer) buildRecord(draft *measureDraft, name string, dob *time.Time, rowNotes string, ownerID uuid.UUID, line int, warnings *[]domain.ValidationIssue) domain.MeasureRecord {
	labels, hasLabels := t.profile.Labels(draft.mapping.QualityMeasure)

	status := strings.TrimSpace(draft.status)
	statusDate := draft.statusDate

	// A date in the status cell means the measure was performed on that date.
	if parsed := dates.Parse(status); parsed.Date != nil && status != "" {
		if statusDate == nil {
			statusDate = parsed.Date
		}
		if hasLabels {
			status = labels.Compliant
		}
	} else if hasLabels {
		switch folded := strings.ToLower(status); {
		case compliantTokens[folded]:
			status = labels.Compliant
		case nonCompliantTokens[folded]:
			status = labels.NonCompliant
		}
	}

	notes := draft.notes
	if notes == "" {
		notes = rowNotes
	}

	record := domain.MeasureRecord{
		PatientName:    name,
		DateOfBirth:    dob,
		RequestType:    draft.mapping.RequestType,
		QualityMeasure: draft.mapping.QualityMeasure,
		MeasureStatus:  status,
		Tracking1:      draft.tracking1,
		Tracking2:      draft.tracking2,
		Tracking3:      draft.tracking3,
		StatusDate:     statusDate,
		Notes:          notes,
		OwnerID:        ownerID,
		SourceRow:      line,
	}

	due := rules.DueDate(statusDate, status, draft.tracking1, draft.tracking2, t.offsets)
	record.DueDate = due.DueDate
	record.IntervalDays = due.IntervalDays
	record.DatePrompt = rules.DatePrompt(status, draft.tracking1, t.prompts)

	if status == "" && statusDate == nil {
		*warnings = append(*warnings, domain.ValidationIssue{
			Severity: domain.SeverityWarning,
			Row:      line,
			Field:    draft.mapping.QualityMeasure,
			Message:  "measure cell present but neither status nor date could be derived",
		})
	}

	return record
}
