// Package attendance holds the attendance list being edited at the desk
// and the operations that load and store it through the backend.
package attendance

import (
	"sync"
	"time"

	"asistenciaqr/internal/models"
)

// Summary counts the rows of a roster.
type Summary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// Roster is the attendance table currently shown to staff. The zero value
// is an empty roster ready to use.
type Roster struct {
	mu   sync.RWMutex
	rows []models.AttendanceRow
}

// NewRoster returns a roster holding a copy of rows.
func NewRoster(rows []models.AttendanceRow) *Roster {
	r := &Roster{}
	r.Replace(rows)
	return r
}

// Replace swaps the whole table, e.g. after a reload.
func (r *Roster) Replace(rows []models.AttendanceRow) {
	cp := make([]models.AttendanceRow, len(rows))
	copy(cp, rows)
	r.mu.Lock()
	r.rows = cp
	r.mu.Unlock()
}

// Rows returns a snapshot of the table.
func (r *Roster) Rows() []models.AttendanceRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]models.AttendanceRow, len(r.rows))
	copy(cp, r.rows)
	return cp
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

// MarkPresent flags the row with the given code as present and stamps the
// local time. It reports whether a row changed; a missing code or a row
// already present is left alone.
func (r *Roster) MarkPresent(code string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].CodigoID != code {
			continue
		}
		if r.rows[i].Asistio {
			return false
		}
		r.rows[i].Asistio = true
		r.rows[i].Hora = models.Clock(at)
		return true
	}
	return false
}

// Toggle sets row i present or absent. Present stamps the time, absent
// clears it. It reports false for an index out of range.
func (r *Roster) Toggle(i int, present bool, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.rows) {
		return false
	}
	r.rows[i].Asistio = present
	if present {
		r.rows[i].Hora = models.Clock(at)
	} else {
		r.rows[i].Hora = ""
	}
	return true
}

// Reset empties the table.
func (r *Roster) Reset() {
	r.mu.Lock()
	r.rows = nil
	r.mu.Unlock()
}

// Entries builds the save payload. Absent rows and rows without a time
// carry a null hora.
func (r *Roster) Entries() []models.AttendanceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AttendanceEntry, 0, len(r.rows))
	for _, row := range r.rows {
		e := models.AttendanceEntry{EstudianteID: row.ID, Asistio: row.Asistio}
		if row.Asistio && row.Hora != "" {
			h := row.Hora
			e.Hora = &h
		}
		out = append(out, e)
	}
	return out
}

func (r *Roster) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Summary{Total: len(r.rows)}
	for _, row := range r.rows {
		if row.Asistio {
			s.Present++
		}
	}
	s.Absent = s.Total - s.Present
	return s
}

// Merge joins the students of a grade with the attendance already recorded
// for them. Students without a record are absent with an empty time.
func Merge(students []models.Student, records []models.AttendanceRecord) []models.AttendanceRow {
	byCode := make(map[string]models.AttendanceRecord, len(records))
	for _, rec := range records {
		byCode[rec.CodigoID] = rec
	}
	rows := make([]models.AttendanceRow, 0, len(students))
	for _, st := range students {
		row := models.AttendanceRow{
			ID:        st.ID,
			CodigoID:  st.CodigoID,
			Nombres:   st.Nombres,
			Apellidos: st.Apellidos,
			DNI:       st.DNI,
			Grado:     st.Grado,
		}
		if rec, ok := byCode[st.CodigoID]; ok {
			row.Asistio = rec.Asistio
			row.Hora = rec.Hora
		}
		rows = append(rows, row)
	}
	return rows
}
