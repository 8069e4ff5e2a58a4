// Package prescription handles authoring and listing of prescriptions. Only
// a doctor holding an approved access grant for the patient may author one.
package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Item is one medicine line on a prescription. Position preserves the order
// the doctor entered the medicines in.
type Item struct {
	ID             uuid.UUID `json:"-" db:"id"`
	PublicID       string    `json:"id" db:"public_id"`
	PrescriptionID uuid.UUID `json:"-" db:"prescription_id"`
	Position       int       `json:"-" db:"position"`
	BrandName      string    `json:"brandName" db:"brand_name"`
	GenericName    string    `json:"genericName" db:"generic_name"`
	Strength       *string   `json:"strength" db:"strength"`
	Dosage         *string   `json:"dosage" db:"dosage"`
	Frequency      *string   `json:"frequency" db:"frequency"`
	Duration       *string   `json:"duration" db:"duration"`
	Notes          *string   `json:"notes" db:"notes"`
}

// Prescription carries a snapshot of the authoring doctor's public id, name
// and specialization taken at issue time. The snapshot is immutable: later
// profile edits do not rewrite history.
type Prescription struct {
	ID                   uuid.UUID `json:"-" db:"id"`
	PublicID             string    `json:"id" db:"public_id"`
	PatientID            uuid.UUID `json:"-" db:"patient_id"`
	DoctorID             uuid.UUID `json:"-" db:"doctor_id"`
	DoctorPublicID       string    `json:"doctorId" db:"doctor_public_id"`
	DoctorName           string    `json:"doctorName" db:"doctor_name"`
	DoctorSpecialization *string   `json:"doctorSpecialization" db:"doctor_specialization"`
	IssuedAt             time.Time `json:"issuedAt" db:"issued_at"`
	FollowUp             *string   `json:"followUp" db:"follow_up"`
	Investigations       []string  `json:"investigations" db:"investigations"`
	Advice               []string  `json:"advice" db:"advice"`
	Items                []Item    `json:"medicines"`
	CreatedAt            time.Time `json:"-" db:"created_at"`
}

// ItemInput is one medicine line as submitted by the doctor.
type ItemInput struct {
	BrandName   string  `json:"brandName"`
	GenericName string  `json:"genericName"`
	Strength    *string `json:"strength"`
	Dosage      *string `json:"dosage"`
	Frequency   *string `json:"frequency"`
	Duration    *string `json:"duration"`
	Notes       *string `json:"notes"`
}

// CreateInput is the authoring payload.
type CreateInput struct {
	FollowUp       *string     `json:"followUp"`
	Investigations []string    `json:"investigations"`
	Advice         []string    `json:"advice"`
	Items          []ItemInput `json:"medicines"`
}
