// Package stub is an in-memory attendance backend speaking the same JSON
// contracts as the school server. It backs local kiosk runs
// (cmd/stubserver) and the HTTP tests of the client packages.
package stub

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"asistenciaqr/internal/auth"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/utils"
)

type account struct {
	models.Account
	DNI          string
	PasswordHash string
}

type recordKey struct {
	StudentID int
	Fecha     string
	Turno     string
}

type record struct {
	Asistio bool
	Hora    string
	Tipo    string
}

// Server holds students, staff accounts and attendance records in memory.
type Server struct {
	mu        sync.Mutex
	sessions  *auth.Sessions
	accounts  map[string]*account // by email
	students  map[int]*models.Student
	records   map[recordKey]*record
	nextID    int
	scanCalls int
	log       *utils.Logger
	now       func() time.Time

	// LegacyScan makes the scan endpoint answer with the deprecated
	// {success, message} shape.
	LegacyScan bool
}

// New creates an empty backend whose session cookies are signed with secret.
func New(secret []byte, log *utils.Logger) *Server {
	if log == nil {
		log = utils.Discard()
	}
	return &Server{
		sessions: auth.NewSessions(secret),
		accounts: make(map[string]*account),
		students: make(map[int]*models.Student),
		records:  make(map[recordKey]*record),
		nextID:   1,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the clock used to stamp scan times.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// AddAccount registers a staff account directly.
func (s *Server) AddAccount(email, password, nombre, apellido, dni string) error {
	_, err := s.addAccount(models.Registration{
		FirstName: nombre,
		LastName:  apellido,
		DNI:       dni,
		Email:     email,
		Password:  password,
	})
	return err
}

func (s *Server) addAccount(reg models.Registration) (*account, error) {
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(reg.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.DNI == reg.DNI {
			return nil, errDuplicateDNI
		}
	}
	if _, ok := s.accounts[email]; ok {
		return nil, errDuplicateEmail
	}
	a := &account{
		Account: models.Account{
			ID:       len(s.accounts) + 1,
			Nombre:   reg.FirstName,
			Apellido: reg.LastName,
			Email:    email,
		},
		DNI:          reg.DNI,
		PasswordHash: hash,
	}
	s.accounts[email] = a
	return a, nil
}

// AddStudent stores a student, assigning an id and, when empty, a code
// derived from the grade and DNI.
func (s *Server) AddStudent(st models.Student) models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.nextID
	s.nextID++
	if st.CodigoID == "" {
		st.CodigoID = studentCode(st)
	}
	stored := st
	s.students[st.ID] = &stored
	return st
}

func studentCode(st models.Student) string {
	prefix := strings.ToUpper(st.Grado)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	dni := st.DNI
	if len(dni) > 4 {
		dni = dni[len(dni)-4:]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, dni, strings.ToUpper(uuid.NewString()[:8]))
}

// ScanCalls returns how many scan reports the server has received.
func (s *Server) ScanCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanCalls
}

// Present reports whether a student has attendance for a date and shift.
func (s *Server) Present(studentID int, fecha, turno string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordKey{studentID, fecha, turno}]
	return ok && r.Asistio
}

// studentsByGrade returns the students of a grade ordered by surname.
func (s *Server) studentsByGrade(grado string) []models.Student {
	var out []models.Student
	for _, st := range s.students {
		if st.Grado == grado {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Apellidos == out[j].Apellidos {
			return out[i].ID < out[j].ID
		}
		return out[i].Apellidos < out[j].Apellidos
	})
	return out
}

func (s *Server) studentByCode(code string) *models.Student {
	for _, st := range s.students {
		if st.CodigoID == code {
			return st
		}
	}
	return nil
}

// Router returns the HTTP routes of the backend.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/check_auth", s.handleCheckAuth).Methods("GET")
	r.HandleFunc("/logout", s.handleLogout).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.sessions.Middleware)
	api.HandleFunc("/estudiantes", s.handleListStudents).Methods("GET")
	api.HandleFunc("/estudiantes/{id:[0-9]+}", s.handleDeleteStudent).Methods("DELETE")
	api.HandleFunc("/asistencia", s.handleListAttendance).Methods("GET")
	api.HandleFunc("/asistencia", s.handleSaveAttendance).Methods("POST")
	api.HandleFunc("/asistencia/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/reportes/asistencia", s.handleReport).Methods("GET")
	return r
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
