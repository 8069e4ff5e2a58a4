package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilog/medilog-api/internal/domain/access"
	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/domain/prescription"
	"github.com/medilog/medilog-api/internal/domain/records"
	"github.com/medilog/medilog-api/internal/platform/auth"
	"github.com/medilog/medilog-api/internal/platform/db"
	"github.com/medilog/medilog-api/internal/platform/middleware"
)

// Tight limits so the caps are cheap to exercise: 1 KB attachments, 4 KB
// upload bodies, 512-byte JSON bodies.
const (
	testMaxUpload       = 1024
	testUploadBodyLimit = 4096
	testJSONBodyLimit   = 512
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	identitySvc := identity.NewService(identity.NewDoctorRepoMem(), identity.NewPatientRepoMem(), db.NoopTxRunner{})
	accessSvc := access.NewService(identitySvc, access.NewRepoMem())
	prescriptionSvc := prescription.NewService(identitySvc, accessSvc, prescription.NewRepoMem(), db.NoopTxRunner{})
	recordsSvc := records.NewService(identitySvc, records.NewMedicalRecordRepoMem(), records.NewPrescriptionRecordRepoMem(), db.NoopTxRunner{}, testMaxUpload)

	issuer, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	h := NewHandler(identitySvc, accessSvc, prescriptionSvc, recordsSvc, issuer)

	e := echo.New()
	e.Use(middleware.BodyLimit(testJSONBodyLimit, testUploadBodyLimit))
	public := e.Group("/api/v1")
	h.RegisterPublicRoutes(public)
	protected := e.Group("/api/v1", auth.Middleware(issuer))
	h.RegisterRoutes(protected)
	return e
}

func doJSON(e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doMultipart(t *testing.T, e *echo.Echo, path, token string, fields map[string]string, fileName, fileType string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		hdr.Set("Content-Type", fileType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

type actor struct {
	id    string
	token string
}

func registerDoctor(t *testing.T, e *echo.Echo, phone string) actor {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/v1/doctors", "", map[string]interface{}{
		"name":           "Dr. Strange",
		"specialization": "Neurosurgery",
		"email":          "strange-" + phone + "@example.com",
		"phone":          phone,
		"password":       "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)

	login := doJSON(e, http.MethodPost, "/api/v1/auth/doctor/login", "", map[string]string{
		"phone": phone, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	return actor{id: id, token: decode(t, login)["token"].(string)}
}

func registerPatient(t *testing.T, e *echo.Echo, username, phone string) actor {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/v1/patients", "", map[string]interface{}{
		"username": username,
		"name":     "Peter Parker",
		"email":    username + "@example.com",
		"phone":    phone,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)

	login := doJSON(e, http.MethodPost, "/api/v1/auth/patient/login", "", map[string]string{
		"phone": phone, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	return actor{id: id, token: decode(t, login)["token"].(string)}
}

func TestPatientRegistrationAndLogin(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/patients", "", map[string]interface{}{
		"username": "webhead",
		"name":     "Peter Parker",
		"email":    "peter@example.com",
		"phone":    "01744444444",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Contains(t, body["id"], "PAT-")
	assert.Equal(t, "webhead", body["username"])
	assert.NotContains(t, rec.Body.String(), "passwordHash", "hash must never serialize")
	assert.NotContains(t, rec.Body.String(), "secret123")

	login := doJSON(e, http.MethodPost, "/api/v1/auth/patient/login", "", map[string]string{
		"phone": "01744444444", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, login.Code)
	loginBody := decode(t, login)
	assert.NotEmpty(t, loginBody["token"])
	patient := loginBody["patient"].(map[string]interface{})
	assert.Equal(t, "webhead", patient["username"])
	assert.NotNil(t, patient["prescriptions"])
	assert.NotNil(t, patient["followRequests"])
}

func TestLoginFailures(t *testing.T) {
	e := newTestServer(t)
	registerPatient(t, e, "failuser", "01755555555")

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/patient/login", "", map[string]string{
		"phone": "01755555555", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode(t, rec)["error"])

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/patient/login", "", map[string]string{
		"phone": "00000000000", "password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode(t, rec)["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/api/v1/patients/by-username/ghost", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessWorkflowAndPrescriptionFlow(t *testing.T) {
	e := newTestServer(t)
	doctor := registerDoctor(t, e, "01866666666")
	patient := registerPatient(t, e, "flowpatient", "01766666666")

	// Doctor requests access.
	rec := doJSON(e, http.MethodPost, "/api/v1/access/request", doctor.token, map[string]string{
		"doctorId": doctor.id, "patientId": patient.id,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Prescribing before approval is rejected.
	rec = doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/prescriptions", doctor.token,
		map[string]interface{}{
			"doctorId":  doctor.id,
			"medicines": []map[string]string{{"brandName": "Napa", "genericName": "Paracetamol"}},
		})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	// Patient approves.
	rec = doJSON(e, http.MethodPost, "/api/v1/access/approve", patient.token, map[string]string{
		"doctorId": doctor.id, "patientId": patient.id,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Now the prescription goes through.
	rec = doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/prescriptions", doctor.token,
		map[string]interface{}{
			"doctorId": doctor.id,
			"advice":   []string{"rest"},
			"medicines": []map[string]string{
				{"brandName": "Napa", "genericName": "Paracetamol", "dosage": "500mg"},
			},
		})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "PRES-1", created["id"])
	assert.Equal(t, "Dr. Strange", created["doctorName"])

	// Patient view embeds the prescription and the approved request.
	rec = doJSON(e, http.MethodGet, "/api/v1/patients/by-username/flowpatient", patient.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	prescriptions := view["prescriptions"].([]interface{})
	require.Len(t, prescriptions, 1)
	requests := view["followRequests"].([]interface{})
	require.Len(t, requests, 1)
	assert.Equal(t, "approved", requests[0].(map[string]interface{})["status"])

	// Doctor view lists the followed patient.
	rec = doJSON(e, http.MethodGet, "/api/v1/doctors/"+doctor.id, doctor.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doctorView := decode(t, rec)
	followed := doctorView["followedPatients"].([]interface{})
	require.Len(t, followed, 1)
	assert.Equal(t, patient.id, followed[0])
}

func TestPrescriptionAuthorBoundToSession(t *testing.T) {
	e := newTestServer(t)
	authorDoctor := registerDoctor(t, e, "01840404040")
	otherDoctor := registerDoctor(t, e, "01850505050")
	patient := registerPatient(t, e, "boundpatient", "01760606060")

	rec := doJSON(e, http.MethodPost, "/api/v1/access/request", authorDoctor.token, map[string]string{
		"doctorId": authorDoctor.id, "patientId": patient.id,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(e, http.MethodPost, "/api/v1/access/approve", patient.token, map[string]string{
		"doctorId": authorDoctor.id, "patientId": patient.id,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	medicines := []map[string]string{{"brandName": "Napa", "genericName": "Paracetamol"}}

	// A doctor session cannot author under another doctor's id, even one
	// that holds an approved grant.
	rec = doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/prescriptions", otherDoctor.token,
		map[string]interface{}{"doctorId": authorDoctor.id, "medicines": medicines})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	assert.Equal(t, "doctorId does not match the authenticated doctor", decode(t, rec)["error"])

	// Omitting doctorId authors as the session doctor.
	rec = doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/prescriptions", authorDoctor.token,
		map[string]interface{}{"medicines": medicines})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, authorDoctor.id, decode(t, rec)["doctorId"])
}

func TestPrescriptionRequiresDoctorRole(t *testing.T) {
	e := newTestServer(t)
	patient := registerPatient(t, e, "rolepatient", "01777777777")

	rec := doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/prescriptions", patient.token,
		map[string]interface{}{
			"medicines": []map[string]string{{"brandName": "Napa", "genericName": "Paracetamol"}},
		})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccessEndpointsUnknownIDs(t *testing.T) {
	e := newTestServer(t)
	doctor := registerDoctor(t, e, "01888888888")

	rec := doJSON(e, http.MethodPost, "/api/v1/access/request", doctor.token, map[string]string{
		"doctorId": doctor.id, "patientId": "PAT-000",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMedicalRecordUploadAndDownload(t *testing.T) {
	e := newTestServer(t)
	patient := registerPatient(t, e, "uploader", "01799999999")

	rec := doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/records", patient.token,
		map[string]interface{}{
			"type":        "lab-report",
			"name":        "Blood Work",
			"institution": "City Lab",
		})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "REC-1", body["id"])

	view := doJSON(e, http.MethodGet, "/api/v1/patients/by-username/uploader", patient.token, nil)
	require.Equal(t, http.StatusOK, view.Code)
	recordsList := decode(t, view)["records"].([]interface{})
	require.Len(t, recordsList, 1)

	// Download on a record without an attachment is a 404.
	dl := doJSON(e, http.MethodGet, "/api/v1/records/REC-1/file", patient.token, nil)
	assert.Equal(t, http.StatusNotFound, dl.Code)
}

func TestMultipartRecordUpload(t *testing.T) {
	e := newTestServer(t)
	patient := registerPatient(t, e, "attacher", "01712121212")
	content := bytes.Repeat([]byte{0x89}, 512)

	rec := doMultipart(t, e, "/api/v1/patients/"+patient.id+"/records", patient.token,
		map[string]string{"type": "imaging", "name": "Chest Scan"}, "scan.png", "image/png", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	file := body["file"].(map[string]interface{})
	assert.Equal(t, "scan.png", file["fileName"])
	assert.Equal(t, float64(len(content)), file["fileSize"])

	dl := doJSON(e, http.MethodGet, "/api/v1/records/"+body["id"].(string)+"/file", patient.token, nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, content, dl.Body.Bytes(), "download must round-trip intact")
}

func TestUploadSizeCaps(t *testing.T) {
	e := newTestServer(t)
	patient := registerPatient(t, e, "bigfiles", "01713131313")

	// A file over the attachment cap is rejected while being read, before
	// the service sees it.
	rec := doMultipart(t, e, "/api/v1/patients/"+patient.id+"/records", patient.token,
		map[string]string{"name": "Huge Scan"}, "huge.pdf", "application/pdf",
		bytes.Repeat([]byte("x"), 2*testMaxUpload))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "file exceeds maximum allowed size", decode(t, rec)["error"])

	// A body over the upload endpoint's limit never reaches the handler.
	oversized := map[string]interface{}{
		"name":        "Padded",
		"institution": strings.Repeat("a", 2*testUploadBodyLimit),
	}
	rec = doJSON(e, http.MethodPost, "/api/v1/patients/"+patient.id+"/records", patient.token, oversized)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	// Ordinary JSON endpoints carry the tighter default limit.
	rec = doJSON(e, http.MethodPatch, "/api/v1/patients/"+patient.id, patient.token,
		map[string]interface{}{"address": strings.Repeat("b", 2*testJSONBodyLimit)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestUpdatePatientEndpoint(t *testing.T) {
	e := newTestServer(t)
	patient := registerPatient(t, e, "updateme", "01710101010")

	rec := doJSON(e, http.MethodPatch, "/api/v1/patients/"+patient.id, patient.token,
		map[string]interface{}{"bloodGroup": "AB+"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AB+", decode(t, rec)["bloodGroup"])

	// Password change without the current password fails with 400.
	rec = doJSON(e, http.MethodPatch, "/api/v1/patients/"+patient.id, patient.token,
		map[string]interface{}{"newPassword": "changed456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetRequestEndpoint(t *testing.T) {
	e := newTestServer(t)
	registerPatient(t, e, "resetuser", "01720202020")

	rec := doJSON(e, http.MethodPost, "/api/v1/password/reset-request", "", map[string]string{
		"email": "resetuser@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])

	rec = doJSON(e, http.MethodPost, "/api/v1/password/reset-request", "", map[string]string{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ok"])
}

func TestGetUnknownPatient(t *testing.T) {
	e := newTestServer(t)
	doctor := registerDoctor(t, e, "01830303030")

	rec := doJSON(e, http.MethodGet, "/api/v1/patients/by-username/nobody", doctor.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "patient not found", decode(t, rec)["error"])
}
