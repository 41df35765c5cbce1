package importer

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/domain"
)

// Diff reconciles transformed candidates against the persisted snapshot. It is
// a pure function of its three inputs: identical inputs always yield an
// identical, deterministically ordered changeset.
//
// Matching key: patient identity plus requestType and qualityMeasure when the
// measure is present, patient identity alone for patient-level rows. In
// replace mode every persisted record unmatched by a candidate becomes a
// delete; in merge mode untouched persisted records are preserved. A candidate
// whose target owner differs from a matched patient's current owner emits a
// PatientReassignment rather than silently overwriting ownership.
func Diff(candidates []domain.MeasureRecord, snapshot domain.Snapshot, mode domain.MergeMode) (domain.ChangeSet, []domain.PatientReassignment) {
	changeset := domain.ChangeSet{Mode: mode}

	persistedByKey := make(map[string]domain.MeasureRecord, len(snapshot.Records))
	for _, record := range snapshot.Records {
		persistedByKey[record.MatchKey()] = record
	}
	patients := snapshot.PatientByIdentity()

	matched := make(map[string]bool, len(candidates))
	reassigned := make(map[domain.PatientIdentity]bool)
	var reassignments []domain.PatientReassignment

	for _, candidate := range candidates {
		identity := candidate.Identity()

		if patient, ok := patients[identity]; ok {
			candidate.PatientID = patient.ID
			if candidate.OwnerID != uuid.Nil && candidate.OwnerID != patient.OwnerID && !reassigned[identity] {
				reassigned[identity] = true
				reassignments = append(reassignments, domain.PatientReassignment{
					PatientID:      patient.ID,
					PatientName:    patient.Name,
					DateOfBirth:    patient.DateOfBirth,
					CurrentOwnerID: patient.OwnerID,
					CurrentOwner:   patient.OwnerName,
					NewOwnerID:     candidate.OwnerID,
				})
				after := candidate
				changeset.Entries = append(changeset.Entries, domain.Change{
					Kind:  domain.ChangeReassign,
					Key:   identity.String(),
					After: &after,
				})
			}
		}

		key := candidate.MatchKey()

		if candidate.PatientLevel() {
			if patient, ok := patients[identity]; ok {
				if patientChanged(patient, candidate) {
					before := patientAsRecord(patient)
					after := candidate
					changeset.Entries = append(changeset.Entries, domain.Change{
						Kind:   domain.ChangeUpdate,
						Key:    key,
						Before: &before,
						After:  &after,
					})
				}
			} else {
				after := candidate
				changeset.Entries = append(changeset.Entries, domain.Change{
					Kind:  domain.ChangeAdd,
					Key:   key,
					After: &after,
				})
			}
			continue
		}

		if persisted, ok := persistedByKey[key]; ok {
			matched[key] = true
			candidate.ID = persisted.ID
			candidate.PatientID = persisted.PatientID
			if mode == domain.MergeModeReplace || recordChanged(persisted, candidate) {
				before := persisted
				after := candidate
				changeset.Entries = append(changeset.Entries, domain.Change{
					Kind:   domain.ChangeUpdate,
					Key:    key,
					Before: &before,
					After:  &after,
				})
			}
		} else {
			after := candidate
			changeset.Entries = append(changeset.Entries, domain.Change{
				Kind:  domain.ChangeAdd,
				Key:   key,
				After: &after,
			})
		}
	}

	if mode == domain.MergeModeReplace {
		keys := make([]string, 0, len(persistedByKey))
		for key := range persistedByKey {
			if !matched[key] {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			before := persistedByKey[key]
			changeset.Entries = append(changeset.Entries, domain.Change{
				Kind:   domain.ChangeDelete,
				Key:    key,
				Before: &before,
			})
		}
	}

	changeset.Sort()
	return changeset, reassignments
}

func recordChanged(persisted, candidate domain.MeasureRecord) bool {
	return persisted.MeasureStatus != candidate.MeasureStatus ||
		!dateEqual(persisted.StatusDate, candidate.StatusDate) ||
		!dateEqual(persisted.DueDate, candidate.DueDate) ||
		persisted.Tracking1 != candidate.Tracking1 ||
		persisted.Tracking2 != candidate.Tracking2 ||
		persisted.Tracking3 != candidate.Tracking3 ||
		persisted.Notes != candidate.Notes ||
		persisted.IsDuplicate != candidate.IsDuplicate
}

// patientChanged compares only the demographic fields a patient-level
// candidate is allowed to touch.
func patientChanged(patient domain.Patient, candidate domain.MeasureRecord) bool {
	if candidate.Notes != "" {
		return true
	}
	return patient.Identity() != candidate.Identity()
}

func patientAsRecord(patient domain.Patient) domain.MeasureRecord {
	return domain.MeasureRecord{
		ID:          patient.ID,
		PatientID:   patient.ID,
		PatientName: patient.Name,
		DateOfBirth: patient.DateOfBirth,
		OwnerID:     patient.OwnerID,
	}
}

func dateEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UTC().Format("2006-01-02") == b.UTC().Format("2006-01-02")
}
