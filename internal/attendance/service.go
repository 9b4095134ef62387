package attendance

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"asistenciaqr/internal/auth"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/utils"
)

// ErrEmptyRoster is returned when saving a list with no rows.
var ErrEmptyRoster = errors.New("no hay estudiantes en la lista")

// Backend is the part of the attendance server the service needs.
// *api.Client implements it.
type Backend interface {
	Students(ctx context.Context, grado string) ([]models.Student, error)
	Attendance(ctx context.Context, f models.Filter) ([]models.AttendanceRecord, error)
	SaveAttendance(ctx context.Context, req models.SaveRequest) (string, error)
	DeleteStudent(ctx context.Context, id int) (string, error)
	Report(ctx context.Context, f models.Filter) (*models.Report, error)
}

// Service loads, saves and edits the roster through the backend.
type Service struct {
	backend Backend
	roster  *Roster
	log     *utils.Logger

	mu     sync.Mutex
	filter models.Filter
}

func NewService(b Backend, roster *Roster, log *utils.Logger) *Service {
	if log == nil {
		log = utils.Discard()
	}
	return &Service{backend: b, roster: roster, log: log}
}

// Roster returns the roster the service edits.
func (s *Service) Roster() *Roster { return s.roster }

// Filter returns the selection of the last Load.
func (s *Service) Filter() models.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Load replaces the roster with the list selected by f. An incomplete
// filter leaves the roster empty. When the students cannot be fetched the
// roster is emptied and the error returned; when only the prior attendance
// fails everyone is shown absent.
func (s *Service) Load(ctx context.Context, f models.Filter) error {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()

	if !f.Complete() {
		s.roster.Reset()
		return nil
	}
	students, err := s.backend.Students(ctx, f.Grado)
	if err != nil {
		s.roster.Reset()
		s.log.Error("load students", utils.Fields{"grado": f.Grado, "err": err})
		return errors.Wrapf(err, "load students of %s", f.Grado)
	}
	records, err := s.backend.Attendance(ctx, f)
	if err != nil {
		s.log.Warn("load prior attendance, showing everyone absent", utils.Fields{"grado": f.Grado, "err": err})
		records = nil
	}
	s.roster.Replace(Merge(students, records))
	s.log.Info("roster loaded", utils.Fields{"grado": f.Grado, "fecha": f.Fecha, "turno": f.Turno, "rows": s.roster.Len()})
	return nil
}

// Save stores the whole roster as a manual registration and empties it.
func (s *Service) Save(ctx context.Context, f models.Filter) (string, error) {
	if err := auth.ValidateFilter(f); err != nil {
		return "", err
	}
	entries := s.roster.Entries()
	if len(entries) == 0 {
		return "", ErrEmptyRoster
	}
	msg, err := s.backend.SaveAttendance(ctx, models.SaveRequest{
		Fecha:       f.Fecha,
		Tipo:        models.TipoManual,
		Turno:       f.Turno,
		Asistencias: entries,
	})
	if err != nil {
		return "", errors.Wrap(err, "save attendance")
	}
	s.roster.Reset()
	s.log.Info("attendance saved", utils.Fields{"grado": f.Grado, "rows": len(entries)})
	return msg, nil
}

// Delete removes a student permanently and reloads the current list.
func (s *Service) Delete(ctx context.Context, id int) (string, error) {
	msg, err := s.backend.DeleteStudent(ctx, id)
	if err != nil {
		return "", errors.Wrapf(err, "delete student %d", id)
	}
	if err := s.Load(ctx, s.Filter()); err != nil {
		return msg, err
	}
	return msg, nil
}

// Report fetches the attendance report of a complete selection.
func (s *Service) Report(ctx context.Context, f models.Filter) (*models.Report, error) {
	if err := auth.ValidateFilter(f); err != nil {
		return nil, err
	}
	rep, err := s.backend.Report(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "generate report")
	}
	return rep, nil
}
