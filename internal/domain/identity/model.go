// Package identity holds the doctor and patient registry: registration with
// store-generated public ids, credential verification, and profile updates.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a registered practitioner. PublicID (DOC-xxx) is the only
// identifier ever exposed outside the API; ID stays internal.
type Doctor struct {
	ID                uuid.UUID  `json:"-" db:"id"`
	PublicID          string     `json:"id" db:"public_id"`
	Name              string     `json:"name" db:"name"`
	Specialization    *string    `json:"specialization" db:"specialization"`
	NID               *string    `json:"nid" db:"nid"`
	Email             string     `json:"email" db:"email"`
	Phone             string     `json:"phone" db:"phone"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	ProfilePictureURL *string    `json:"profilePictureUrl" db:"profile_picture_url"`
	DateOfBirth       *time.Time `json:"dateOfBirth" db:"date_of_birth"`
	CreatedAt         time.Time  `json:"-" db:"created_at"`
	UpdatedAt         time.Time  `json:"-" db:"updated_at"`
}

// Vital is one vital-sign reading kept on the patient (label -> latest value).
type Vital struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
	Date  string `json:"date"`
}

// Patient is a registered patient. Username is a unique, case-insensitive
// lookup key; PublicID has the PAT-NNN format.
type Patient struct {
	ID                uuid.UUID  `json:"-" db:"id"`
	PublicID          string     `json:"id" db:"public_id"`
	Username          string     `json:"username" db:"username"`
	Name              string     `json:"name" db:"name"`
	Age               *int       `json:"age" db:"age"`
	Gender            *string    `json:"gender" db:"gender"`
	DateOfBirth       *time.Time `json:"dateOfBirth" db:"date_of_birth"`
	NID               *string    `json:"nid" db:"nid"`
	BloodGroup        *string    `json:"bloodGroup" db:"blood_group"`
	Allergies         *string    `json:"allergies" db:"allergies"`
	Asthma            *string    `json:"asthma" db:"asthma"`
	Email             string     `json:"email" db:"email"`
	Phone             string     `json:"phone" db:"phone"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	ProfilePictureURL *string    `json:"profilePictureUrl" db:"profile_picture_url"`
	Vitals            []Vital    `json:"vitals" db:"vitals"`
	MajorConditions   []string   `json:"majorConditions" db:"major_conditions"`
	CreatedAt         time.Time  `json:"-" db:"created_at"`
	UpdatedAt         time.Time  `json:"-" db:"updated_at"`
}

// RegisterDoctorInput carries the fields accepted at doctor registration.
type RegisterDoctorInput struct {
	Name              string     `json:"name"`
	Specialization    *string    `json:"specialization"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Password          string     `json:"password"`
	DateOfBirth       *time.Time `json:"dateOfBirth"`
	NID               *string    `json:"nid"`
	ProfilePictureURL *string    `json:"profilePictureUrl"`
}

// RegisterPatientInput carries the fields accepted at patient registration.
type RegisterPatientInput struct {
	Username          string     `json:"username"`
	Name              string     `json:"name"`
	Age               *int       `json:"age"`
	Gender            *string    `json:"gender"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Password          string     `json:"password"`
	DateOfBirth       *time.Time `json:"dateOfBirth"`
	NID               *string    `json:"nid"`
	ProfilePictureURL *string    `json:"profilePictureUrl"`
	BloodGroup        *string    `json:"bloodGroup"`
	Allergies         *string    `json:"allergies"`
	Asthma            *string    `json:"asthma"`
	MajorConditions   []string   `json:"majorConditions"`
}

// DoctorUpdate is the closed set of doctor fields a PATCH may change.
// Nil means "leave unchanged" (merge-patch).
type DoctorUpdate struct {
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Specialization    *string `json:"specialization"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
	CurrentPassword   *string `json:"currentPassword"`
	NewPassword       *string `json:"newPassword"`
}

// PatientUpdate is the closed set of patient fields a PATCH may change.
type PatientUpdate struct {
	Name              *string   `json:"name"`
	Email             *string   `json:"email"`
	Phone             *string   `json:"phone"`
	ProfilePictureURL *string   `json:"profilePictureUrl"`
	BloodGroup        *string   `json:"bloodGroup"`
	Allergies         *string   `json:"allergies"`
	Asthma            *string   `json:"asthma"`
	MajorConditions   *[]string `json:"majorConditions"`
	CurrentPassword   *string   `json:"currentPassword"`
	NewPassword       *string   `json:"newPassword"`
}
