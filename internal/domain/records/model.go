// Package records stores the documents a patient attaches to their history:
// medical records (lab reports, imaging, discharge summaries) and scanned
// prescription records from outside the system. Either kind may carry an
// uploaded file.
package records

import (
	"time"

	"github.com/google/uuid"
)

// FileInfo is the metadata of an attached file. The blob itself is stored
// alongside the row and only streamed on download.
type FileInfo struct {
	Name        string `json:"fileName" db:"file_name"`
	ContentType string `json:"fileType" db:"file_type"`
	Size        int64  `json:"fileSize" db:"file_size"`
	Hash        string `json:"fileHash" db:"file_hash"`
}

// MedicalRecord is an externally produced clinical document.
type MedicalRecord struct {
	ID          uuid.UUID  `json:"-" db:"id"`
	PublicID    string     `json:"id" db:"public_id"`
	PatientID   uuid.UUID  `json:"-" db:"patient_id"`
	Type        string     `json:"type" db:"type"`
	Name        string     `json:"name" db:"name"`
	RecordDate  *time.Time `json:"date" db:"record_date"`
	Institution *string    `json:"institution" db:"institution"`
	File        *FileInfo  `json:"file,omitempty"`
	CreatedAt   time.Time  `json:"-" db:"created_at"`
}

// PrescriptionRecord is a prescription issued outside the system, kept as a
// named document rather than structured medicine lines.
type PrescriptionRecord struct {
	ID         uuid.UUID  `json:"-" db:"id"`
	PublicID   string     `json:"id" db:"public_id"`
	PatientID  uuid.UUID  `json:"-" db:"patient_id"`
	Name       string     `json:"name" db:"name"`
	RecordDate *time.Time `json:"date" db:"record_date"`
	File       *FileInfo  `json:"file,omitempty"`
	CreatedAt  time.Time  `json:"-" db:"created_at"`
}
