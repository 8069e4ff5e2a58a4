package portal

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medilog/medilog-api/internal/domain/access"
	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/domain/prescription"
	"github.com/medilog/medilog-api/internal/domain/records"
	"github.com/medilog/medilog-api/internal/platform/apperror"
	"github.com/medilog/medilog-api/internal/platform/auth"
	"github.com/medilog/medilog-api/pkg/pagination"
)

type Handler struct {
	identity      *identity.Service
	access        *access.Service
	prescriptions *prescription.Service
	records       *records.Service
	tokens        *auth.TokenIssuer
}

func NewHandler(ident *identity.Service, acc *access.Service, presc *prescription.Service, rec *records.Service, tokens *auth.TokenIssuer) *Handler {
	return &Handler{identity: ident, access: acc, prescriptions: presc, records: rec, tokens: tokens}
}

// RegisterPublicRoutes mounts the endpoints reachable without a session.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/patient/login", h.handlePatientLogin)
	g.POST("/auth/doctor/login", h.handleDoctorLogin)
	g.POST("/patients", h.handleRegisterPatient)
	g.POST("/doctors", h.handleRegisterDoctor)
	g.POST("/password/reset-request", h.handlePasswordResetRequest)
}

// RegisterRoutes mounts the session-guarded endpoints. The group is expected
// to carry the auth middleware already.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients/by-username/:username", h.handleGetPatient)
	g.GET("/doctors/:id", h.handleGetDoctor)
	g.PATCH("/patients/:id", h.handleUpdatePatient)
	g.PATCH("/doctors/:id", h.handleUpdateDoctor)

	g.POST("/patients/:id/prescriptions", h.handleCreatePrescription, auth.RequireRole(auth.RoleDoctor))
	g.GET("/patients/:id/prescriptions", h.handleListPrescriptions)
	g.POST("/patients/:id/records", h.handleAddMedicalRecord)
	g.POST("/patients/:id/prescription-records", h.handleAddPrescriptionRecord)
	g.GET("/records/:id/file", h.handleDownloadMedicalFile)
	g.GET("/prescription-records/:id/file", h.handleDownloadPrescriptionFile)

	g.POST("/access/request", h.handleAccessRequest, auth.RequireRole(auth.RoleDoctor))
	g.POST("/access/approve", h.handleAccessApprove, auth.RequireRole(auth.RolePatient))
	g.POST("/access/decline", h.handleAccessDecline, auth.RequireRole(auth.RolePatient))
}

func respondError(c echo.Context, err error) error {
	return c.JSON(apperror.HTTPStatus(err), map[string]string{"error": apperror.Message(err)})
}

// -- Auth --

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *Handler) handlePatientLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	p, err := h.identity.AuthenticatePatient(ctx, req.Phone, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildPatientView(ctx, p)
	if err != nil {
		return respondError(c, err)
	}
	token, err := h.tokens.Issue(p.PublicID, auth.RolePatient)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"token": token, "patient": view})
}

func (h *Handler) handleDoctorLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	d, err := h.identity.AuthenticateDoctor(ctx, req.Phone, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildDoctorView(ctx, d)
	if err != nil {
		return respondError(c, err)
	}
	token, err := h.tokens.Issue(d.PublicID, auth.RoleDoctor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"token": token, "doctor": view})
}

// -- Registration --

func (h *Handler) handleRegisterPatient(c echo.Context) error {
	var in identity.RegisterPatientInput
	if err := c.Bind(&in); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	p, err := h.identity.RegisterPatient(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildPatientView(ctx, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) handleRegisterDoctor(c echo.Context) error {
	var in identity.RegisterDoctorInput
	if err := c.Bind(&in); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	d, err := h.identity.RegisterDoctor(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildDoctorView(ctx, d)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) handlePasswordResetRequest(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	exists, err := h.identity.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": exists})
}

// -- Profiles --

func (h *Handler) handleGetPatient(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.identity.GetPatientByUsername(ctx, c.Param("username"))
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildPatientView(ctx, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) handleGetDoctor(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := h.identity.GetDoctorByPublicID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildDoctorView(ctx, d)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) handleUpdatePatient(c echo.Context) error {
	var upd identity.PatientUpdate
	if err := c.Bind(&upd); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	p, err := h.identity.UpdatePatient(ctx, c.Param("id"), upd)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildPatientView(ctx, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) handleUpdateDoctor(c echo.Context) error {
	var upd identity.DoctorUpdate
	if err := c.Bind(&upd); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	d, err := h.identity.UpdateDoctor(ctx, c.Param("id"), upd)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.buildDoctorView(ctx, d)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// -- Prescriptions --

func (h *Handler) handleCreatePrescription(c echo.Context) error {
	var req struct {
		DoctorID string `json:"doctorId"`
		prescription.CreateInput
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	ctx := c.Request().Context()
	doctorID := req.DoctorID
	// Doctor sessions always author as themselves; a body doctorId may only
	// restate the session subject. Admin sessions name the doctor explicitly.
	if auth.RoleFromContext(ctx) == auth.RoleDoctor {
		sessionDoctor := auth.UserIDFromContext(ctx)
		if doctorID != "" && doctorID != sessionDoctor {
			return respondError(c, apperror.Unauthorized("doctorId does not match the authenticated doctor"))
		}
		doctorID = sessionDoctor
	}
	if doctorID == "" {
		return respondError(c, apperror.BadRequest("doctorId is required"))
	}
	p, err := h.prescriptions.Create(ctx, c.Param("id"), doctorID, req.CreateInput)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// handleListPrescriptions serves the standalone, paginated prescription
// list. The full patient view embeds the complete history instead.
func (h *Handler) handleListPrescriptions(c echo.Context) error {
	ctx := c.Request().Context()
	patient, err := h.identity.ResolvePatient(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	all, err := h.prescriptions.ListByPatient(ctx, patient.ID)
	if err != nil {
		return respondError(c, err)
	}

	params := pagination.FromContext(c)
	start := params.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + params.Limit
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]
	if page == nil {
		page = []*prescription.Prescription{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(all), params.Limit, params.Offset))
}

// -- Records --

const dateOnly = "2006-01-02"

func parseRecordDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperror.BadRequest("invalid date format")
	}
	return &t, nil
}

// readUpload pulls the optional "file" part out of a multipart form. The
// read is capped at the configured upload limit so an oversized part is
// rejected without buffering the whole thing.
func (h *Handler) readUpload(c echo.Context) (*records.FileUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil // no file part
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening uploaded file: %w", err)
	}
	defer src.Close()
	max := h.records.MaxUploadBytes()
	data, err := io.ReadAll(io.LimitReader(src, max+1))
	if err != nil {
		return nil, fmt.Errorf("reading uploaded file: %w", err)
	}
	if int64(len(data)) > max {
		return nil, apperror.BadRequest("file exceeds maximum allowed size")
	}
	return &records.FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func (h *Handler) handleAddMedicalRecord(c echo.Context) error {
	var in records.MedicalRecordInput
	if isMultipart(c) {
		date, err := parseRecordDate(c.FormValue("date"))
		if err != nil {
			return respondError(c, err)
		}
		in.Type = c.FormValue("type")
		in.Name = c.FormValue("name")
		in.RecordDate = date
		if v := c.FormValue("institution"); v != "" {
			in.Institution = &v
		}
		file, err := h.readUpload(c)
		if err != nil {
			return respondError(c, err)
		}
		in.File = file
	} else if err := c.Bind(&in); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}

	rec, err := h.records.AddMedicalRecord(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) handleAddPrescriptionRecord(c echo.Context) error {
	var in records.PrescriptionRecordInput
	if isMultipart(c) {
		date, err := parseRecordDate(c.FormValue("date"))
		if err != nil {
			return respondError(c, err)
		}
		in.Name = c.FormValue("name")
		in.RecordDate = date
		file, err := h.readUpload(c)
		if err != nil {
			return respondError(c, err)
		}
		in.File = file
	} else if err := c.Bind(&in); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}

	rec, err := h.records.AddPrescriptionRecord(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) handleDownloadMedicalFile(c echo.Context) error {
	info, data, err := h.records.DownloadMedicalFile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, info.Name))
	return c.Blob(http.StatusOK, info.ContentType, data)
}

func (h *Handler) handleDownloadPrescriptionFile(c echo.Context) error {
	info, data, err := h.records.DownloadPrescriptionFile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, info.Name))
	return c.Blob(http.StatusOK, info.ContentType, data)
}

// -- Access workflow --

type accessRequest struct {
	DoctorID  string `json:"doctorId"`
	PatientID string `json:"patientId"`
}

func (h *Handler) handleAccessRequest(c echo.Context) error {
	var req accessRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	if err := h.access.Request(c.Request().Context(), req.DoctorID, req.PatientID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleAccessApprove(c echo.Context) error {
	var req accessRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	if err := h.access.Approve(c.Request().Context(), req.DoctorID, req.PatientID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleAccessDecline(c echo.Context) error {
	var req accessRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.BadRequest("invalid request body"))
	}
	if err := h.access.Decline(c.Request().Context(), req.DoctorID, req.PatientID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
