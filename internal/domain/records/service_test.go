package records

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/platform/apperror"
	"github.com/medilog/medilog-api/internal/platform/db"
)

func strPtr(s string) *string { return &s }

// countingTxRunner runs the function directly and records each invocation.
type countingTxRunner struct{ calls int }

func (r *countingTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func newFixture(t *testing.T) (*Service, *identity.Patient) {
	t.Helper()
	identitySvc := identity.NewService(identity.NewDoctorRepoMem(), identity.NewPatientRepoMem(), db.NoopTxRunner{})
	svc := NewService(identitySvc, NewMedicalRecordRepoMem(), NewPrescriptionRecordRepoMem(), db.NoopTxRunner{}, 1024)

	p, err := identitySvc.RegisterPatient(context.Background(), identity.RegisterPatientInput{
		Username: "recpatient",
		Name:     "Rec Patient",
		Email:    "rec@example.com",
		Phone:    "01733333333",
		Password: "secret123",
	})
	require.NoError(t, err)
	return svc, p
}

func TestAddMedicalRecord(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()

	rec, err := svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{
		Type:        "lab-report",
		Name:        "CBC Report",
		Institution: strPtr("City Hospital"),
	})
	require.NoError(t, err)
	assert.Equal(t, "REC-1", rec.PublicID)
	assert.Nil(t, rec.File)
}

func TestAddMedicalRecordValidation(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()

	_, err := svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{Type: "lab-report"})
	assert.True(t, apperror.IsBadRequest(err), "name required")

	_, err = svc.AddMedicalRecord(ctx, "PAT-000", MedicalRecordInput{Name: "X"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestAddMedicalRecordWithFile(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()
	content := []byte("%PDF-1.4 report body")

	rec, err := svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{
		Name: "X-Ray",
		File: &FileUpload{Name: "xray.pdf", ContentType: "application/pdf", Data: content},
	})
	require.NoError(t, err)
	require.NotNil(t, rec.File)
	assert.Equal(t, "xray.pdf", rec.File.Name)
	assert.Equal(t, int64(len(content)), rec.File.Size)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(content)), rec.File.Hash)

	info, data, err := svc.DownloadMedicalFile(ctx, rec.PublicID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.True(t, bytes.Equal(content, data), "download must round-trip intact")
}

func TestFileValidation(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()

	_, err := svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{
		Name: "Bad Type",
		File: &FileUpload{Name: "run.exe", ContentType: "application/x-msdownload", Data: []byte("MZ")},
	})
	assert.True(t, apperror.IsBadRequest(err), "disallowed mime type")

	_, err = svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{
		Name: "Too Big",
		File: &FileUpload{Name: "big.pdf", ContentType: "application/pdf", Data: make([]byte, 2048)},
	})
	assert.True(t, apperror.IsBadRequest(err), "over the 1024-byte cap")

	_, err = svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{
		Name: "No File Name",
		File: &FileUpload{ContentType: "application/pdf", Data: []byte("x")},
	})
	assert.True(t, apperror.IsBadRequest(err), "file name required")
}

func TestDownloadMissingFile(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()

	rec, err := svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{Name: "No Attachment"})
	require.NoError(t, err)

	_, _, err = svc.DownloadMedicalFile(ctx, rec.PublicID)
	assert.True(t, apperror.IsNotFound(err), "record without file has nothing to download")

	_, _, err = svc.DownloadMedicalFile(ctx, "REC-999")
	assert.True(t, apperror.IsNotFound(err))
}

func TestPrescriptionRecords(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()

	first, err := svc.AddPrescriptionRecord(ctx, p.PublicID, PrescriptionRecordInput{Name: "Old Rx 1"})
	require.NoError(t, err)
	assert.Equal(t, "PR-1", first.PublicID)

	second, err := svc.AddPrescriptionRecord(ctx, p.PublicID, PrescriptionRecordInput{
		Name: "Old Rx 2",
		File: &FileUpload{Name: "rx.jpeg", ContentType: "image/jpeg", Data: []byte{0xFF, 0xD8}},
	})
	require.NoError(t, err)

	list, err := svc.ListPrescriptionRecordsByPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.PublicID, list[0].PublicID, "newest first")
	assert.Equal(t, first.PublicID, list[1].PublicID)

	info, data, err := svc.DownloadPrescriptionFile(ctx, second.PublicID)
	require.NoError(t, err)
	assert.Equal(t, "rx.jpeg", info.Name)
	assert.Equal(t, []byte{0xFF, 0xD8}, data)
}

func TestRecordCreationRunsAtomically(t *testing.T) {
	identitySvc := identity.NewService(identity.NewDoctorRepoMem(), identity.NewPatientRepoMem(), db.NoopTxRunner{})
	tx := &countingTxRunner{}
	svc := NewService(identitySvc, NewMedicalRecordRepoMem(), NewPrescriptionRecordRepoMem(), tx, 1024)

	p, err := identitySvc.RegisterPatient(context.Background(), identity.RegisterPatientInput{
		Username: "txpatient",
		Name:     "Tx Patient",
		Email:    "tx@example.com",
		Phone:    "01734343434",
		Password: "secret123",
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{Name: "Scan"})
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls, "medical record insert and id assignment share a transaction")

	_, err = svc.AddPrescriptionRecord(ctx, p.PublicID, PrescriptionRecordInput{Name: "Old Rx"})
	require.NoError(t, err)
	assert.Equal(t, 2, tx.calls)

	// Validation failures never reach the transaction.
	_, err = svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{
		Name: "Too Big",
		File: &FileUpload{Name: "big.pdf", ContentType: "application/pdf", Data: make([]byte, 2048)},
	})
	require.Error(t, err)
	assert.Equal(t, 2, tx.calls)
}

func TestListMedicalNewestFirst(t *testing.T) {
	svc, p := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := svc.AddMedicalRecord(ctx, p.PublicID, MedicalRecordInput{Name: fmt.Sprintf("Rec %d", i)})
		require.NoError(t, err)
	}

	list, err := svc.ListMedicalByPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Rec 3", list[0].Name)
	assert.Equal(t, "Rec 1", list[2].Name)
}
