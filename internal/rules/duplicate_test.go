package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/domain"
)

func record(name string, dob *time.Time, requestType, measure string) domain.MeasureRecord {
	return domain.MeasureRecord{
		PatientName:    name,
		DateOfBirth:    dob,
		RequestType:    requestType,
		QualityMeasure: measure,
	}
}

func TestFlagAllMarksSharedKeys(t *testing.T) {
	dob := date(1985, time.February, 20)
	records := []domain.MeasureRecord{
		record("Jane Doe", dob, "Screening", "Breast Cancer Screening"),
		record("jane  doe", dob, "Screening", "Breast Cancer Screening"),
		record("Jane Doe", dob, "Lab", "Diabetes HgbA1c Control"),
		record("John Smith", date(1990, time.January, 15), "Screening", "Breast Cancer Screening"),
	}

	flagged := FlagAll(records)
	if !flagged[0].IsDuplicate || !flagged[1].IsDuplicate {
		t.Error("records sharing identity and measure should both be flagged")
	}
	if flagged[2].IsDuplicate {
		t.Error("same patient, different measure should not be flagged")
	}
	if flagged[3].IsDuplicate {
		t.Error("different patient should not be flagged")
	}
}

func TestFlagAllClearsStaleFlags(t *testing.T) {
	dob := date(1985, time.February, 20)
	records := []domain.MeasureRecord{
		record("Jane Doe", dob, "Screening", "Breast Cancer Screening"),
	}
	records[0].IsDuplicate = true

	flagged := FlagAll(records)
	if flagged[0].IsDuplicate {
		t.Error("a lone record must have its duplicate flag cleared")
	}
}

func TestFlagAllIgnoresIneligibleRecords(t *testing.T) {
	dob := date(1985, time.February, 20)
	records := []domain.MeasureRecord{
		record("Jane Doe", dob, "", ""),
		record("Jane Doe", dob, "", ""),
	}

	flagged := FlagAll(records)
	if flagged[0].IsDuplicate || flagged[1].IsDuplicate {
		t.Error("patient-level records never participate in duplicate detection")
	}
}

func TestIsDuplicateOf(t *testing.T) {
	dob := date(1985, time.February, 20)
	persisted := record("Jane Doe", dob, "Screening", "Breast Cancer Screening")
	persisted.ID = uuid.New()

	candidate := record("JANE DOE", dob, "Screening", "Breast Cancer Screening")
	if !IsDuplicateOf(candidate, []domain.MeasureRecord{persisted}) {
		t.Error("candidate matching a persisted record should be a duplicate")
	}

	// A record is never a duplicate of itself.
	self := persisted
	if IsDuplicateOf(self, []domain.MeasureRecord{persisted}) {
		t.Error("record compared against itself should not be a duplicate")
	}

	other := record("Jane Doe", dob, "Lab", "Diabetes HgbA1c Control")
	if IsDuplicateOf(other, []domain.MeasureRecord{persisted}) {
		t.Error("different measure should not be a duplicate")
	}
}
