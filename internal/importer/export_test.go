package importer

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/careops/measuresync/internal/domain"
	"github.com/careops/measuresync/internal/preview"
)

func exportBundle() *preview.Bundle {
	interval := 90
	after := domain.MeasureRecord{
		PatientName:    "Jane Doe",
		DateOfBirth:    datePtrFor(1985, time.February, 20),
		RequestType:    "Screening",
		QualityMeasure: "Breast Cancer Screening",
		MeasureStatus:  "Screening discussed",
		StatusDate:     datePtrFor(2026, time.January, 15),
		DueDate:        datePtrFor(2026, time.April, 15),
		IntervalDays:   &interval,
	}
	before := domain.MeasureRecord{
		PatientName:    "John Smith",
		DateOfBirth:    datePtrFor(1990, time.January, 15),
		RequestType:    "Lab",
		QualityMeasure: "Diabetes HgbA1c Control",
		MeasureStatus:  "HgbA1c at goal",
	}
	return &preview.Bundle{
		ID: "test-bundle",
		ChangeSet: domain.ChangeSet{
			Mode: domain.MergeModeReplace,
			Entries: []domain.Change{
				{Kind: domain.ChangeAdd, Key: after.MatchKey(), After: &after},
				{Kind: domain.ChangeDelete, Key: before.MatchKey(), Before: &before},
			},
		},
	}
}

func TestWriteChangeSetCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChangeSetCSV(&buf, exportBundle()); err != nil {
		t.Fatalf("csv export returned error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Change" || rows[0][1] != "Patient" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "add" || rows[1][1] != "Jane Doe" || rows[1][7] != "04/15/2026" || rows[1][8] != "90" {
		t.Errorf("unexpected add row: %v", rows[1])
	}
	// Delete entries render the persisted side.
	if rows[2][0] != "delete" || rows[2][1] != "John Smith" {
		t.Errorf("unexpected delete row: %v", rows[2])
	}
}

func TestWriteChangeSetXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChangeSetXLSX(&buf, exportBundle()); err != nil {
		t.Fatalf("xlsx export returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("export is not a readable workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Changeset")
	if err != nil {
		t.Fatalf("failed to read Changeset sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "add" || rows[1][1] != "Jane Doe" {
		t.Errorf("unexpected first data row: %v", rows[1])
	}
}
