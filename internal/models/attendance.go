package models

import (
	"strings"
	"time"
)

// Shift values accepted by the backend.
const (
	ShiftMorning   = "manana"
	ShiftAfternoon = "tarde"
)

// DateLayout is the wire format of Filter.Fecha.
const DateLayout = "2006-01-02"

// ClockLayout is the format of locally stamped attendance times.
const ClockLayout = "15:04:05"

// Filter selects one attendance list.
type Filter struct {
	Grado string `json:"grado" validate:"required"`
	Fecha string `json:"fecha" validate:"required,datetime=2006-01-02"`
	Turno string `json:"turno" validate:"required,oneof=manana tarde"`
}

// Complete reports whether every field needed to load a list is set.
func (f Filter) Complete() bool {
	return strings.TrimSpace(f.Grado) != "" && f.Fecha != "" && f.Turno != ""
}

// Student is one entry of GET /api/estudiantes.
type Student struct {
	ID        int    `json:"id"`
	CodigoID  string `json:"codigo_id"`
	Nombres   string `json:"nombres"`
	Apellidos string `json:"apellidos"`
	DNI       string `json:"dni"`
	Grado     string `json:"grado"`
}

// FullName is "Apellidos Nombres", the order used on reports.
func (s Student) FullName() string {
	return strings.TrimSpace(s.Apellidos + " " + s.Nombres)
}

// AttendanceRecord is one entry of GET /api/asistencia.
type AttendanceRecord struct {
	CodigoID string `json:"codigo_id"`
	Asistio  bool   `json:"asistio"`
	Hora     string `json:"hora"`
}

// AttendanceRow is the view model of one line of the attendance table.
type AttendanceRow struct {
	ID        int    `json:"id"`
	CodigoID  string `json:"codigo_id"`
	Nombres   string `json:"nombres"`
	Apellidos string `json:"apellidos"`
	DNI       string `json:"dni"`
	Grado     string `json:"grado"`
	Asistio   bool   `json:"asistio"`
	Hora      string `json:"hora"`
}

// AttendanceEntry is one element of the save payload.
type AttendanceEntry struct {
	EstudianteID int     `json:"estudiante_id"`
	Asistio      bool    `json:"asistio"`
	Hora         *string `json:"hora"`
}

// SaveRequest is the body of POST /api/asistencia.
type SaveRequest struct {
	Fecha       string            `json:"fecha"`
	Tipo        string            `json:"tipo"`
	Turno       string            `json:"turno"`
	Asistencias []AttendanceEntry `json:"asistencias"`
}

// Registration kinds stored with each attendance record.
const (
	TipoManual = "manual"
	TipoQR     = "qr"
)

// ReportRow is one entry of GET /api/reportes/asistencia.
type ReportRow struct {
	AttendanceRow
	Tipo string `json:"tipo"`
}

// Report is a generated attendance report with the filter that produced it.
type Report struct {
	Rows    []ReportRow `json:"reporte"`
	Filtros Filter      `json:"filtros"`
}

// ShiftRange returns the scheduled check-in window of a shift.
func ShiftRange(turno string) (from, to string) {
	if turno == ShiftMorning {
		return "07:00", "08:30"
	}
	return "15:00", "16:00"
}

// ShiftLabel is the human label of a shift.
func ShiftLabel(turno string) string {
	if turno == ShiftMorning {
		return "Turno Mañana"
	}
	return "Turno Tarde"
}

// Clock formats t the way attendance times are stamped locally.
func Clock(t time.Time) string {
	return t.Local().Format(ClockLayout)
}
