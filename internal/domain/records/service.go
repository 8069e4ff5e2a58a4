package records

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/platform/apperror"
	"github.com/medilog/medilog-api/internal/platform/db"
)

// DefaultMaxUploadBytes caps attachments when the config does not set a
// limit (10 MB).
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// allowedContentTypes lists the document MIME types a patient may attach.
var allowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
}

// FileUpload is an attachment as received from the transport layer, already
// read into memory.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// MedicalRecordInput is the payload for adding a medical record.
type MedicalRecordInput struct {
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	RecordDate  *time.Time  `json:"date"`
	Institution *string     `json:"institution"`
	File        *FileUpload `json:"-"`
}

// PrescriptionRecordInput is the payload for adding a prescription record.
type PrescriptionRecordInput struct {
	Name       string      `json:"name"`
	RecordDate *time.Time  `json:"date"`
	File       *FileUpload `json:"-"`
}

type Service struct {
	identity            *identity.Service
	medical             MedicalRecordRepository
	prescriptionRecords PrescriptionRecordRepository
	tx                  db.TxRunner
	maxUploadBytes      int64
}

func NewService(ident *identity.Service, medical MedicalRecordRepository, prescriptionRecords PrescriptionRecordRepository, tx db.TxRunner, maxUploadBytes int64) *Service {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{
		identity:            ident,
		medical:             medical,
		prescriptionRecords: prescriptionRecords,
		tx:                  tx,
		maxUploadBytes:      maxUploadBytes,
	}
}

// MaxUploadBytes reports the configured attachment size cap so transports
// can stop reading at the limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// validateFile checks the attachment and returns its stored metadata. The
// hash lets a client verify a download round-tripped intact.
func (s *Service) validateFile(f *FileUpload) (*FileInfo, []byte, error) {
	if f == nil {
		return nil, nil, nil
	}
	if strings.TrimSpace(f.Name) == "" {
		return nil, nil, apperror.BadRequest("file name is required")
	}
	if !allowedContentTypes[f.ContentType] {
		return nil, nil, apperror.BadRequest("file type is not allowed")
	}
	if int64(len(f.Data)) > s.maxUploadBytes {
		return nil, nil, apperror.BadRequest("file exceeds maximum allowed size")
	}
	h := sha256.Sum256(f.Data)
	return &FileInfo{
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        int64(len(f.Data)),
		Hash:        fmt.Sprintf("%x", h),
	}, f.Data, nil
}

func (s *Service) AddMedicalRecord(ctx context.Context, patientRef string, in MedicalRecordInput) (*MedicalRecord, error) {
	patient, err := s.identity.ResolvePatient(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.BadRequest("record name is required")
	}
	info, data, err := s.validateFile(in.File)
	if err != nil {
		return nil, err
	}
	rec := &MedicalRecord{
		PatientID:   patient.ID,
		Type:        in.Type,
		Name:        in.Name,
		RecordDate:  in.RecordDate,
		Institution: in.Institution,
		File:        info,
	}
	// Create writes the row and its derived public id in two statements,
	// so it must run atomically.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.medical.Create(ctx, rec, data)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) AddPrescriptionRecord(ctx context.Context, patientRef string, in PrescriptionRecordInput) (*PrescriptionRecord, error) {
	patient, err := s.identity.ResolvePatient(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.BadRequest("record name is required")
	}
	info, data, err := s.validateFile(in.File)
	if err != nil {
		return nil, err
	}
	rec := &PrescriptionRecord{
		PatientID:  patient.ID,
		Name:       in.Name,
		RecordDate: in.RecordDate,
		File:       info,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.prescriptionRecords.Create(ctx, rec, data)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ListMedicalByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return s.medical.ListByPatient(ctx, patientID)
}

func (s *Service) ListPrescriptionRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]*PrescriptionRecord, error) {
	return s.prescriptionRecords.ListByPatient(ctx, patientID)
}

// DownloadMedicalFile returns the stored blob for a medical record.
func (s *Service) DownloadMedicalFile(ctx context.Context, publicID string) (*FileInfo, []byte, error) {
	rec, data, err := s.medical.GetFile(ctx, publicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, apperror.NotFound("record file not found")
		}
		return nil, nil, err
	}
	return rec.File, data, nil
}

// DownloadPrescriptionFile returns the stored blob for a prescription record.
func (s *Service) DownloadPrescriptionFile(ctx context.Context, publicID string) (*FileInfo, []byte, error) {
	rec, data, err := s.prescriptionRecords.GetFile(ctx, publicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, apperror.NotFound("record file not found")
		}
		return nil, nil, err
	}
	return rec.File, data, nil
}
