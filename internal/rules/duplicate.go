package rules

import (
	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/domain"
)

// Duplicate detection groups records by (patient identity, requestType,
// qualityMeasure). Records missing requestType or qualityMeasure are never
// duplicates. The three entry points below agree when applied consistently
// over the same data; they differ only in scope.

// IsDuplicateOf checks one candidate against a set of persisted records,
// excluding any persisted record that shares the candidate's id.
func IsDuplicateOf(candidate domain.MeasureRecord, persisted []domain.MeasureRecord) bool {
	if !candidate.DuplicateEligible() {
		return false
	}
	key := candidate.DuplicateKey()
	for _, other := range persisted {
		if other.ID != uuid.Nil && other.ID == candidate.ID {
			continue
		}
		if other.DuplicateEligible() && other.DuplicateKey() == key {
			return true
		}
	}
	return false
}

// FlagPatient recomputes duplicate flags across one patient's record set.
func FlagPatient(records []domain.MeasureRecord) []domain.MeasureRecord {
	return FlagAll(records)
}

// FlagAll recomputes duplicate flags across a whole dataset. Any duplicate key
// shared by two or more eligible records marks all of them; every other record
// is cleared.
func FlagAll(records []domain.MeasureRecord) []domain.MeasureRecord {
	counts := make(map[string]int, len(records))
	for _, record := range records {
		if record.DuplicateEligible() {
			counts[record.DuplicateKey()]++
		}
	}

	flagged := make([]domain.MeasureRecord, len(records))
	for i, record := range records {
		record.IsDuplicate = record.DuplicateEligible() && counts[record.DuplicateKey()] >= 2
		flagged[i] = record
	}
	return flagged
}
