package importer

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/dates"
	"github.com/careops/measuresync/internal/ingest"
	"github.com/careops/measuresync/internal/registry"
)

func testProfile() *registry.SystemProfile {
	return &registry.SystemProfile{
		ID:          "athena",
		DisplayName: "Athena Health",
		PatientColumns: map[string]string{
			"patient name": "fullName",
			"dob":          "dateOfBirth",
			"notes":        "notes",
		},
		MeasureColumns: map[string]registry.MeasureMapping{
			"mammogram": {
				RequestType:    "Screening",
				QualityMeasure: "Breast Cancer Screening",
				Field:          registry.FieldStatus,
			},
			"mammogram date": {
				RequestType:    "Screening",
				QualityMeasure: "Breast Cancer Screening",
				Field:          registry.FieldStatusDate,
			},
			"mammogram tracking": {
				RequestType:    "Screening",
				QualityMeasure: "Breast Cancer Screening",
				Field:          registry.FieldTracking1,
			},
			"hgba1c": {
				RequestType:    "Lab",
				QualityMeasure: "Diabetes HgbA1c Control",
				Field:          registry.FieldStatus,
			},
		},
		StatusLabels: map[string]registry.StatusLabels{
			"breast cancer screening": {
				Compliant:    "Mammogram completed",
				NonCompliant: "Screening discussed",
			},
		},
		SkipHeaders: map[string]struct{}{"phone": {}},
	}
}

func sheetOf(headers []string, rows ...map[string]string) *ingest.Sheet {
	return &ingest.Sheet{Headers: headers, Rows: rows, DataStartLine: 2, Format: "csv"}
}

func TestTransformMapsMeasureColumns(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Mammogram", "Mammogram Date"},
		map[string]string{
			"Patient Name":   "Jane Doe",
			"DOB":            "02/20/1985",
			"Mammogram":      "Completed",
			"Mammogram Date": "03/10/2025",
		},
	)

	result := transformer.Transform(sheet, uuid.Nil)
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}

	record := result.Records[0]
	if record.PatientName != "Jane Doe" {
		t.Errorf("name = %q", record.PatientName)
	}
	if dates.ToCanonicalString(record.DateOfBirth) != "1985-02-20" {
		t.Errorf("dob = %s", dates.ToCanonicalString(record.DateOfBirth))
	}
	if record.RequestType != "Screening" || record.QualityMeasure != "Breast Cancer Screening" {
		t.Errorf("measure = %s / %s", record.RequestType, record.QualityMeasure)
	}
	// "Completed" is a compliant token, translated through the status map.
	if record.MeasureStatus != "Mammogram completed" {
		t.Errorf("status = %q", record.MeasureStatus)
	}
	if dates.ToCanonicalString(record.StatusDate) != "2025-03-10" {
		t.Errorf("statusDate = %s", dates.ToCanonicalString(record.StatusDate))
	}
	if record.DatePrompt != "Date Performed" {
		t.Errorf("datePrompt = %q", record.DatePrompt)
	}
	if record.SourceRow != 2 {
		t.Errorf("sourceRow = %d, want 2", record.SourceRow)
	}
}

func TestTransformDateInStatusCell(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Mammogram"},
		map[string]string{
			"Patient Name": "Jane Doe",
			"DOB":          "02/20/1985",
			"Mammogram":    "03/10/2025",
		},
	)

	result := transformer.Transform(sheet, uuid.Nil)
	record := result.Records[0]
	if dates.ToCanonicalString(record.StatusDate) != "2025-03-10" {
		t.Errorf("date in status cell should become the status date, got %s", dates.ToCanonicalString(record.StatusDate))
	}
	if record.MeasureStatus != "Mammogram completed" {
		t.Errorf("date in status cell should imply the compliant label, got %q", record.MeasureStatus)
	}
}

func TestTransformNonCompliantTokenAndDueDate(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Mammogram", "Mammogram Date", "Mammogram Tracking"},
		map[string]string{
			"Patient Name":       "Jane Doe",
			"DOB":                "02/20/1985",
			"Mammogram":          "Due",
			"Mammogram Date":     "01/15/2026",
			"Mammogram Tracking": "In 3 Months",
		},
	)

	result := transformer.Transform(sheet, uuid.Nil)
	record := result.Records[0]
	if record.MeasureStatus != "Screening discussed" {
		t.Fatalf("status = %q, want Screening discussed", record.MeasureStatus)
	}
	if dates.ToCanonicalString(record.DueDate) != "2026-04-15" {
		t.Errorf("dueDate = %s, want 2026-04-15", dates.ToCanonicalString(record.DueDate))
	}
	if record.IntervalDays == nil || *record.IntervalDays != 90 {
		t.Errorf("intervalDays = %v, want 90", record.IntervalDays)
	}
}

func TestTransformPatientLevelRow(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Notes"},
		map[string]string{
			"Patient Name": "John Smith",
			"DOB":          "01/15/1990",
			"Notes":        "Prefers morning calls",
		},
	)

	result := transformer.Transform(sheet, uuid.Nil)
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 patient-level record, got %d", len(result.Records))
	}
	record := result.Records[0]
	if !record.PatientLevel() {
		t.Error("record without measure cells should be patient-level")
	}
	if record.Notes != "Prefers morning calls" {
		t.Errorf("notes = %q", record.Notes)
	}
}

func TestTransformWarnsOnceForUnmappedColumn(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Insurance", "Phone"},
		map[string]string{"Patient Name": "Jane Doe", "DOB": "02/20/1985", "Insurance": "Acme", "Phone": "5551234567"},
		map[string]string{"Patient Name": "John Smith", "DOB": "01/15/1990", "Insurance": "Acme"},
	)

	result := transformer.Transform(sheet, uuid.Nil)

	unmapped := 0
	for _, warning := range result.Warnings {
		if strings.Contains(warning.Message, "not mapped") {
			unmapped++
			if warning.Field != "Insurance" {
				t.Errorf("unexpected unmapped column %q; skip headers must stay silent", warning.Field)
			}
		}
	}
	if unmapped != 1 {
		t.Errorf("expected exactly one unmapped-column warning, got %d", unmapped)
	}
}

func TestTransformBadDateOfBirthDegradesToWarning(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB"},
		map[string]string{"Patient Name": "Jane Doe", "DOB": "02/30/1985"},
	)

	result := transformer.Transform(sheet, uuid.Nil)
	if len(result.Records) != 1 {
		t.Fatalf("row should still produce a record, got %d", len(result.Records))
	}
	if result.Records[0].DateOfBirth != nil {
		t.Error("unparseable dob should stay nil")
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0].Message, "not a recognizable date") {
		t.Errorf("expected a dob warning, got %v", result.Warnings)
	}
}

func TestTransformFlagsDuplicatesAcrossRows(t *testing.T) {
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Mammogram"},
		map[string]string{"Patient Name": "Jane Doe", "DOB": "02/20/1985", "Mammogram": "Completed"},
		map[string]string{"Patient Name": "JANE  DOE", "DOB": "02/20/1985", "Mammogram": "Due"},
		map[string]string{"Patient Name": "John Smith", "DOB": "01/15/1990", "Mammogram": "Completed"},
	)

	result := transformer.Transform(sheet, uuid.Nil)
	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Records))
	}
	if !result.Records[0].IsDuplicate || !result.Records[1].IsDuplicate {
		t.Error("same patient and measure across rows should be flagged as duplicates")
	}
	if result.Records[2].IsDuplicate {
		t.Error("distinct patient should not be flagged")
	}
}

func TestTransformOwnerPropagates(t *testing.T) {
	ownerID := uuid.New()
	transformer := NewTransformer(testProfile(), nil, nil)
	sheet := sheetOf(
		[]string{"Patient Name", "DOB", "Mammogram"},
		map[string]string{"Patient Name": "Jane Doe", "DOB": "02/20/1985", "Mammogram": "Completed"},
	)

	result := transformer.Transform(sheet, ownerID)
	if result.Records[0].OwnerID != ownerID {
		t.Error("target owner should be stamped on every candidate")
	}
}
