package access

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/platform/apperror"
	"github.com/medilog/medilog-api/internal/platform/db"
)

type fixture struct {
	identity *identity.Service
	access   *Service
	doctor   *identity.Doctor
	patient  *identity.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	identitySvc := identity.NewService(identity.NewDoctorRepoMem(), identity.NewPatientRepoMem(), db.NoopTxRunner{})
	accessSvc := NewService(identitySvc, NewRepoMem())

	spec := "Cardiology"
	d, err := identitySvc.RegisterDoctor(context.Background(), identity.RegisterDoctorInput{
		Name:           "Dr. Grey",
		Specialization: &spec,
		Email:          "grey@example.com",
		Phone:          "01811111111",
		Password:       "secret123",
	})
	require.NoError(t, err)

	p, err := identitySvc.RegisterPatient(context.Background(), identity.RegisterPatientInput{
		Username: "grantpatient",
		Name:     "Grant Patient",
		Email:    "grant@example.com",
		Phone:    "01711111111",
		Password: "secret123",
	})
	require.NoError(t, err)

	return &fixture{identity: identitySvc, access: accessSvc, doctor: d, patient: p}
}

func TestRequestCreatesPendingGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))

	grants, err := f.access.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, StatusPending, grants[0].Status)
	assert.Equal(t, "Dr. Grey", grants[0].DoctorName)
	require.NotNil(t, grants[0].DoctorSpecialization)
	assert.Equal(t, "Cardiology", *grants[0].DoctorSpecialization)
}

func TestRequestUnknownIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.access.Request(ctx, "DOC-0", f.patient.PublicID)
	assert.True(t, apperror.IsNotFound(err))

	err = f.access.Request(ctx, f.doctor.PublicID, "PAT-000")
	assert.True(t, apperror.IsNotFound(err))

	grants, err := f.access.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Empty(t, grants, "failed requests must not leave rows behind")
}

func TestRepeatRequestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))
	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))

	grants, err := f.access.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestDeclinedGrantStaysDeclined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))
	require.NoError(t, f.access.Decline(ctx, f.doctor.PublicID, f.patient.PublicID))

	// Re-requesting does not reopen the question.
	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))

	grants, err := f.access.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, StatusDeclined, grants[0].Status)
}

func TestApproveWithoutRequestIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.access.Approve(ctx, f.doctor.PublicID, f.patient.PublicID))

	grants, err := f.access.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Empty(t, grants, "approve must never create a grant")

	ok, err := f.access.HasApprovedAccess(ctx, f.doctor.ID, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApproveFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.access.HasApprovedAccess(ctx, f.doctor.ID, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, ok, "no grant means no access")

	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))
	ok, err = f.access.HasApprovedAccess(ctx, f.doctor.ID, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, ok, "pending is not approved")

	require.NoError(t, f.access.Approve(ctx, f.doctor.PublicID, f.patient.PublicID))
	ok, err = f.access.HasApprovedAccess(ctx, f.doctor.ID, f.patient.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	followed, err := f.access.ApprovedPatientPublicIDs(ctx, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.patient.PublicID}, followed)
}

func TestDeclineRevokesAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID))
	require.NoError(t, f.access.Approve(ctx, f.doctor.PublicID, f.patient.PublicID))
	require.NoError(t, f.access.Decline(ctx, f.doctor.PublicID, f.patient.PublicID))

	ok, err := f.access.HasApprovedAccess(ctx, f.doctor.ID, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followed, err := f.access.ApprovedPatientPublicIDs(ctx, f.doctor.ID)
	require.NoError(t, err)
	assert.Empty(t, followed)
}

func TestConcurrentRequestsSingleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.access.Request(ctx, f.doctor.PublicID, f.patient.PublicID); err != nil {
				t.Errorf("request failed: %v", err)
			}
		}()
	}
	wg.Wait()

	grants, err := f.access.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1, "concurrent requests must collapse to one grant")
}
