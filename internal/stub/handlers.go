package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"asistenciaqr/internal/auth"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/utils"
)

var (
	errDuplicateDNI   = errors.New("Ya existe un usuario con este DNI.")
	errDuplicateEmail = errors.New("Ya existe un usuario con este email.")
)

type envelope map[string]interface{}

func fail(w http.ResponseWriter, status int, msg string) {
	auth.JSONResponse(w, status, envelope{"success": false, "message": msg})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form auth.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		fail(w, http.StatusOK, "La solicitud no contiene datos JSON válidos.")
		return
	}
	s.mu.Lock()
	a, ok := s.accounts[normalizeEmail(form.Email)]
	s.mu.Unlock()
	if !ok || !auth.CheckPasswordHash(form.Password, a.PasswordHash) {
		s.log.Warn("login rejected", utils.Fields{"email": form.Email})
		fail(w, http.StatusOK, "Credenciales incorrectas")
		return
	}
	if err := s.sessions.Login(w, r, a.ID, a.Nombre+" "+a.Apellido); err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "message": "Inicio de sesión exitoso", "redirect": "/menu"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		fail(w, http.StatusOK, "La solicitud no contiene datos JSON válidos.")
		return
	}
	if err := auth.Validate(reg); err != nil {
		fail(w, http.StatusOK, err.Error())
		return
	}
	a, err := s.addAccount(reg)
	if err != nil {
		fail(w, http.StatusOK, err.Error())
		return
	}
	if err := s.sessions.Login(w, r, a.ID, a.Nombre+" "+a.Apellido); err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info("account registered", utils.Fields{"email": a.Email})
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "message": "¡Registro exitoso! Bienvenido/a.", "redirect": "/menu"})
}

func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.UserID(r)
	if err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, a := range s.accounts {
			if a.ID == id {
				auth.JSONResponse(w, http.StatusOK, envelope{"authenticated": true, "user": a.Account})
				return
			}
		}
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"authenticated": false})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	grado := r.URL.Query().Get("grado")
	s.mu.Lock()
	list := s.studentsByGrade(grado)
	s.mu.Unlock()
	if list == nil {
		list = []models.Student{}
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "estudiantes": list})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.Lock()
	st, ok := s.students[id]
	if ok {
		delete(s.students, id)
		for k := range s.records {
			if k.StudentID == id {
				delete(s.records, k)
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		fail(w, http.StatusNotFound, "Estudiante no encontrado")
		return
	}
	auth.JSONResponse(w, http.StatusOK, envelope{
		"success": true,
		"message": fmt.Sprintf("Estudiante %s eliminado permanentemente", st.FullName()),
	})
}

// filterFrom reads grado, fecha and turno from the query string.
func filterFrom(r *http.Request) (models.Filter, error) {
	q := r.URL.Query()
	f := models.Filter{Grado: q.Get("grado"), Fecha: q.Get("fecha"), Turno: q.Get("turno")}
	return f, auth.ValidateFilter(f)
}

func (s *Server) rows(f models.Filter) []models.ReportRow {
	var rows []models.ReportRow
	for _, st := range s.studentsByGrade(f.Grado) {
		row := models.ReportRow{
			AttendanceRow: models.AttendanceRow{
				ID:        st.ID,
				CodigoID:  st.CodigoID,
				Nombres:   st.Nombres,
				Apellidos: st.Apellidos,
				DNI:       st.DNI,
				Grado:     st.Grado,
			},
			Tipo: "No Registrado",
		}
		if rec, ok := s.records[recordKey{st.ID, f.Fecha, f.Turno}]; ok {
			row.Asistio = rec.Asistio
			row.Hora = rec.Hora
			row.Tipo = rec.Tipo
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Faltan parámetros")
		return
	}
	s.mu.Lock()
	rows := s.rows(f)
	s.mu.Unlock()
	list := make([]models.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.AttendanceRow)
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "asistencias": list})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		auth.JSONResponse(w, http.StatusBadRequest, envelope{"success": false, "error": err.Error()})
		return
	}
	s.mu.Lock()
	rows := s.rows(f)
	s.mu.Unlock()
	if rows == nil {
		rows = []models.ReportRow{}
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "reporte": rows, "filtros": f})
}

func (s *Server) handleSaveAttendance(w http.ResponseWriter, r *http.Request) {
	var req models.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Asistencias) == 0 || req.Fecha == "" {
		fail(w, http.StatusBadRequest, "Datos incompletos")
		return
	}
	if req.Turno == "" {
		req.Turno = models.ShiftMorning
	}
	if req.Tipo == "" {
		req.Tipo = models.TipoManual
	}
	saved := 0
	s.mu.Lock()
	for _, a := range req.Asistencias {
		if _, ok := s.students[a.EstudianteID]; !ok {
			continue
		}
		rec := &record{Asistio: a.Asistio, Tipo: req.Tipo}
		if a.Asistio && a.Hora != nil {
			if _, err := time.Parse(models.ClockLayout, *a.Hora); err == nil {
				rec.Hora = *a.Hora
			}
		}
		s.records[recordKey{a.EstudianteID, req.Fecha, req.Turno}] = rec
		saved++
	}
	s.mu.Unlock()
	auth.JSONResponse(w, http.StatusOK, envelope{
		"success":   true,
		"message":   fmt.Sprintf("Asistencia guardada: %d registros", saved),
		"guardadas": saved,
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CodigoID == "" || req.Fecha == "" || req.Turno == "" {
		fail(w, http.StatusBadRequest, "Datos incompletos (codigo_id, fecha, turno)")
		return
	}

	s.mu.Lock()
	s.scanCalls++
	legacy := s.LegacyScan
	st := s.studentByCode(req.CodigoID)
	var resp models.ScanResponse
	switch {
	case st == nil:
		resp = models.ScanResponse{Status: models.ScanNotFound, CodigoID: req.CodigoID}
	default:
		key := recordKey{st.ID, req.Fecha, req.Turno}
		resp = models.ScanResponse{Status: models.ScanDuplicate, StudentName: st.FullName(), CodigoID: st.CodigoID}
		if rec, ok := s.records[key]; !ok || !rec.Asistio {
			s.records[key] = &record{Asistio: true, Hora: models.Clock(s.now()), Tipo: models.TipoQR}
			resp.Status = models.ScanSuccess
		}
	}
	s.mu.Unlock()

	s.log.Info("scan", utils.Fields{"codigo_id": req.CodigoID, "status": string(resp.Status)})
	if legacy {
		writeLegacyScan(w, resp)
		return
	}
	auth.JSONResponse(w, http.StatusOK, resp)
}

// writeLegacyScan answers in the old {success, message} shape.
func writeLegacyScan(w http.ResponseWriter, resp models.ScanResponse) {
	switch resp.Status {
	case models.ScanNotFound:
		fail(w, http.StatusNotFound, fmt.Sprintf("Estudiante con código %s no encontrado.", resp.CodigoID))
	case models.ScanDuplicate:
		auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "message": resp.StudentName + " ya tiene asistencia registrada."})
	default:
		auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "message": "Asistencia de " + resp.StudentName + " registrada.", "codigo_id": resp.CodigoID})
	}
}
