// Package access implements the doctor-patient access workflow: a doctor
// requests to follow a patient, and the patient approves or declines. An
// approved grant is what lets a doctor view the patient's record and author
// prescriptions.
package access

import (
	"time"

	"github.com/google/uuid"
)

// Grant statuses. A pair with no row is implicitly "none".
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// Grant is the persisted access decision for one (doctor, patient) pair.
// DoctorName and DoctorSpecialization are snapshots taken at request time so
// the patient's request list stays historically accurate even if the doctor
// later edits their profile.
type Grant struct {
	ID                   uuid.UUID `json:"-" db:"id"`
	DoctorID             uuid.UUID `json:"-" db:"doctor_id"`
	PatientID            uuid.UUID `json:"-" db:"patient_id"`
	DoctorName           string    `json:"doctorName" db:"doctor_name"`
	DoctorSpecialization *string   `json:"doctorSpecialization" db:"doctor_specialization"`
	Status               string    `json:"status" db:"status"`
	CreatedAt            time.Time `json:"-" db:"created_at"`
	UpdatedAt            time.Time `json:"-" db:"updated_at"`
}
