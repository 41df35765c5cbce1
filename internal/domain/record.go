package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MeasureRecord is the source-system-independent quality-measure tracking entry.
// Instances created during an import transform stay in memory until the operator
// commits the preview; only then do they reach storage.
type MeasureRecord struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patientId"`
	PatientName    string     `json:"patientName"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	RequestType    string     `json:"requestType"`
	QualityMeasure string     `json:"qualityMeasure"`
	MeasureStatus  string     `json:"measureStatus"`
	Tracking1      string     `json:"tracking1,omitempty"`
	Tracking2      string     `json:"tracking2,omitempty"`
	Tracking3      string     `json:"tracking3,omitempty"`
	StatusDate     *time.Time `json:"statusDate,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	IntervalDays   *int       `json:"intervalDays,omitempty"`
	DatePrompt     string     `json:"datePrompt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	IsDuplicate    bool       `json:"isDuplicate"`
	OwnerID        uuid.UUID  `json:"ownerId"`

	// SourceRow is the 1-indexed line of the uploaded file this record came
	// from, zero for persisted records.
	SourceRow int `json:"sourceRow,omitempty"`
}

// Identity returns the canonical patient key for this record.
func (r MeasureRecord) Identity() PatientIdentity {
	return NewPatientIdentity(r.PatientName, r.DateOfBirth)
}

// PatientIdentity is the canonical patient key: normalized name plus date of
// birth. Matching is case- and whitespace-insensitive on the name.
type PatientIdentity struct {
	Name        string
	DateOfBirth string
}

// NewPatientIdentity normalizes name and date of birth into a comparable key.
func NewPatientIdentity(name string, dob *time.Time) PatientIdentity {
	normalized := strings.ToLower(strings.Join(strings.Fields(name), " "))
	key := PatientIdentity{Name: normalized}
	if dob != nil {
		key.DateOfBirth = dob.UTC().Format("2006-01-02")
	}
	return key
}

// String renders the identity as a stable composite key.
func (p PatientIdentity) String() string {
	return p.Name + "|" + p.DateOfBirth
}

// DuplicateEligible reports whether the record participates in duplicate
// detection. Records missing either requestType or qualityMeasure never do.
func (r MeasureRecord) DuplicateEligible() bool {
	return strings.TrimSpace(r.RequestType) != "" && strings.TrimSpace(r.QualityMeasure) != ""
}

// DuplicateKey groups records that count as duplicates of one another.
func (r MeasureRecord) DuplicateKey() string {
	return r.Identity().String() + "|" + strings.TrimSpace(r.RequestType) + "|" + strings.TrimSpace(r.QualityMeasure)
}

// MatchKey is the reconciliation matching key: patient identity plus request
// type and quality measure when the measure is present, patient identity alone
// for patient-level rows.
func (r MeasureRecord) MatchKey() string {
	if strings.TrimSpace(r.QualityMeasure) == "" {
		return r.Identity().String()
	}
	return r.DuplicateKey()
}

// PatientLevel reports whether the record carries only patient fields.
func (r MeasureRecord) PatientLevel() bool {
	return strings.TrimSpace(r.QualityMeasure) == ""
}
