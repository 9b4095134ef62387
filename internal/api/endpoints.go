package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"asistenciaqr/internal/models"
)

var (
	// ErrRejected is returned when the backend answers {success: false}.
	ErrRejected = errors.New("request rejected by server")
	// ErrLegacyScanResponse is returned when the scan endpoint answers with
	// the deprecated {success, message} shape instead of {status, ...}.
	ErrLegacyScanResponse = errors.New("scan endpoint returned legacy {success, message} reply")
	// ErrUnknownStatus is returned for a scan status outside success,
	// duplicate and not_found.
	ErrUnknownStatus = errors.New("unknown scan status")
)

// Login opens a staff session. The session cookie is kept by the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var env models.Envelope
	status, err := c.do(ctx, http.MethodPost, "/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &env)
	if err != nil {
		return err
	}
	return checkEnvelope(status, env)
}

// Register creates a staff account; the backend logs the new account in.
func (c *Client) Register(ctx context.Context, req models.Registration) error {
	var env models.Envelope
	status, err := c.do(ctx, http.MethodPost, "/register", nil, req, &env)
	if err != nil {
		return err
	}
	return checkEnvelope(status, env)
}

// CheckAuth reports whether the client holds a live session.
func (c *Client) CheckAuth(ctx context.Context) (*models.Account, error) {
	var reply struct {
		Authenticated bool            `json:"authenticated"`
		User          *models.Account `json:"user"`
	}
	status, err := c.do(ctx, http.MethodGet, "/check_auth", nil, nil, &reply)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.Errorf("check_auth: status %d", status)
	}
	if !reply.Authenticated {
		return nil, nil
	}
	return reply.User, nil
}

// Students lists the students of a grade.
func (c *Client) Students(ctx context.Context, grado string) ([]models.Student, error) {
	var reply struct {
		models.Envelope
		Estudiantes []models.Student `json:"estudiantes"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/estudiantes", url.Values{"grado": {grado}}, nil, &reply)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(status, reply.Envelope); err != nil {
		return nil, err
	}
	return reply.Estudiantes, nil
}

// Attendance returns the attendance already recorded for a list.
func (c *Client) Attendance(ctx context.Context, f models.Filter) ([]models.AttendanceRecord, error) {
	var reply struct {
		models.Envelope
		Asistencias []models.AttendanceRecord `json:"asistencias"`
	}
	q := url.Values{"grado": {f.Grado}, "fecha": {f.Fecha}, "turno": {f.Turno}}
	status, err := c.do(ctx, http.MethodGet, "/api/asistencia", q, nil, &reply)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(status, reply.Envelope); err != nil {
		return nil, err
	}
	return reply.Asistencias, nil
}

// SaveAttendance stores a whole list and returns the server message.
func (c *Client) SaveAttendance(ctx context.Context, req models.SaveRequest) (string, error) {
	var env models.Envelope
	status, err := c.do(ctx, http.MethodPost, "/api/asistencia", nil, req, &env)
	if err != nil {
		return "", err
	}
	if err := checkEnvelope(status, env); err != nil {
		return "", err
	}
	return env.Message, nil
}

// ReportScan submits one decoded QR code. Only the canonical
// {status, student_name, codigo_id} reply is accepted.
func (c *Client) ReportScan(ctx context.Context, req models.ScanRequest) (models.ScanResponse, error) {
	var reply struct {
		models.ScanResponse
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/asistencia/scan", nil, req, &reply)
	if err != nil {
		return models.ScanResponse{}, err
	}
	switch {
	case reply.Status.Valid():
		if reply.CodigoID == "" {
			reply.CodigoID = req.CodigoID
		}
		return reply.ScanResponse, nil
	case reply.Status != "":
		return models.ScanResponse{}, errors.Wrapf(ErrUnknownStatus, "%q", reply.Status)
	case status < 200 || status >= 300:
		return models.ScanResponse{}, checkEnvelope(status, models.Envelope{Message: reply.Message})
	case reply.Success != nil:
		return models.ScanResponse{}, errors.Wrap(ErrLegacyScanResponse, reply.Message)
	default:
		return models.ScanResponse{}, errors.Wrap(ErrUnknownStatus, "empty status")
	}
}

// DeleteStudent removes a student permanently and returns the server message.
func (c *Client) DeleteStudent(ctx context.Context, id int) (string, error) {
	var env models.Envelope
	status, err := c.do(ctx, http.MethodDelete, "/api/estudiantes/"+strconv.Itoa(id), nil, nil, &env)
	if err != nil {
		return "", err
	}
	if err := checkEnvelope(status, env); err != nil {
		return "", err
	}
	return env.Message, nil
}

// Report fetches the attendance report of a list, including the
// registration kind of every row.
func (c *Client) Report(ctx context.Context, f models.Filter) (*models.Report, error) {
	var reply struct {
		models.Envelope
		models.Report
	}
	q := url.Values{"grado": {f.Grado}, "fecha": {f.Fecha}, "turno": {f.Turno}}
	status, err := c.do(ctx, http.MethodGet, "/api/reportes/asistencia", q, nil, &reply)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(status, reply.Envelope); err != nil {
		return nil, err
	}
	if reply.Filtros == (models.Filter{}) {
		reply.Filtros = f
	}
	return &reply.Report, nil
}
