package domain

import (
	"time"

	"github.com/google/uuid"
)

// Owner is a physician who owns a panel of patients.
type Owner struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Patient is the persisted patient row a candidate record is matched against.
type Patient struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	OwnerName   string     `json:"ownerName"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Identity returns the canonical patient key for this patient.
func (p Patient) Identity() PatientIdentity {
	return NewPatientIdentity(p.Name, p.DateOfBirth)
}

// Snapshot is the persisted state an import is reconciled against, scoped by
// the caller (typically to one owner's panel).
type Snapshot struct {
	Patients []Patient
	Records  []MeasureRecord
}

// PatientByIdentity indexes the snapshot's patients by canonical identity.
func (s Snapshot) PatientByIdentity() map[PatientIdentity]Patient {
	index := make(map[PatientIdentity]Patient, len(s.Patients))
	for _, patient := range s.Patients {
		index[patient.Identity()] = patient
	}
	return index
}

// PatientReassignment is emitted when an upload targets an owner other than a
// matched patient's current owner, so the operator can confirm instead of the
// ownership being silently overwritten.
type PatientReassignment struct {
	PatientID      uuid.UUID  `json:"patientId"`
	PatientName    string     `json:"patientName"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	CurrentOwnerID uuid.UUID  `json:"currentOwnerId"`
	CurrentOwner   string     `json:"currentOwnerName"`
	NewOwnerID     uuid.UUID  `json:"newOwnerId"`
}
