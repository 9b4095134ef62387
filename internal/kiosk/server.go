package kiosk

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"asistenciaqr/internal/attendance"
	"asistenciaqr/internal/auth"
	"asistenciaqr/internal/export"
	"asistenciaqr/internal/files"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/scan"
	"asistenciaqr/internal/utils"
)

//go:embed static
var staticFiles embed.FS

// Options wires a Server.
type Options struct {
	Hub     *Hub
	Service *attendance.Service
	Scanner scan.Strategy
	// Journal may be nil.
	Journal *files.ScanJournal
	Station string
	Origin  string
	// CameraURL is shown to the page as the video source, if the
	// camera is reachable from the browser.
	CameraURL string
	Now       func() time.Time
	Log       *utils.Logger
}

// Server is the HTTP side of the desk display.
type Server struct {
	opts Options
	hub  *Hub
	svc  *attendance.Service
	log  *utils.Logger
}

func NewServer(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = utils.Discard()
	}
	s := &Server{opts: opts, hub: opts.Hub, svc: opts.Service, log: opts.Log}
	s.hub.OnConnect(func() []Message {
		return []Message{rosterMessage(s.svc.Roster())}
	})
	return s
}

// HandleEvent journals a scan event and refreshes the pages after a
// successful scan. Subscribe it with Scanner.OnDetect.
func (s *Server) HandleEvent(e scan.Event) {
	if s.opts.Journal != nil {
		entry := files.JournalEntry{
			Code:        e.Code,
			Status:      string(e.Type),
			StudentName: e.StudentName,
			Fecha:       e.Fecha,
			Turno:       e.Turno,
			Station:     s.opts.Station,
			At:          e.At,
		}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
		if _, err := s.opts.Journal.Append(entry); err != nil {
			s.log.Error("journal scan", utils.Fields{"codigo_id": e.Code, "err": err})
		}
	}
	if e.Type == scan.EventScanSuccess {
		s.hub.PushRoster(s.svc.Roster())
	}
}

// Router returns the display routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/ws", s.hub.ServeWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/display", s.handleDisplay).Methods("GET")
	api.HandleFunc("/roster", s.handleRoster).Methods("GET")
	api.HandleFunc("/roster/load", s.handleLoad).Methods("POST")
	api.HandleFunc("/roster/{index:[0-9]+}/toggle", s.handleToggle).Methods("POST")
	api.HandleFunc("/roster/save", s.handleSave).Methods("POST")
	api.HandleFunc("/roster/students/{id:[0-9]+}", s.handleDelete).Methods("DELETE")
	api.HandleFunc("/scanner/start", s.handleStart).Methods("POST")
	api.HandleFunc("/scanner/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/report", s.handleReport).Methods("GET")
	api.HandleFunc("/journal", s.handleJournal).Methods("GET")

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))
	return r
}

// Handler wraps the router with CORS for the configured origin.
func (s *Server) Handler() http.Handler {
	origins := []string{"*"}
	if s.opts.Origin != "" && s.opts.Origin != "*" {
		origins = []string{s.opts.Origin}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.Router())
}

type envelope map[string]interface{}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var se *utils.StatusError
	var fe *auth.FormError
	switch {
	case errors.As(err, &fe), errors.Is(err, attendance.ErrEmptyRoster),
		errors.Is(err, scan.ErrFilterIncomplete), errors.Is(err, export.ErrEmptyReport):
		status = http.StatusBadRequest
	case errors.Is(err, scan.ErrRunning), errors.Is(err, scan.ErrStartCanceled):
		status = http.StatusConflict
	case errors.Is(err, scan.ErrCameraUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &se) && se.Unauthorized():
		status = http.StatusUnauthorized
	}
	msg := err.Error()
	if fe != nil {
		msg = fe.Error()
	}
	s.log.Warn("display request failed", utils.Fields{"status": status, "err": err})
	auth.JSONResponse(w, status, envelope{"success": false, "message": msg})
}

func (s *Server) rosterReply(w http.ResponseWriter, extra envelope) {
	roster := s.svc.Roster()
	reply := envelope{
		"success": true,
		"filtros": s.svc.Filter(),
		"rows":    roster.Rows(),
		"summary": roster.Summary(),
	}
	for k, v := range extra {
		reply[k] = v
	}
	auth.JSONResponse(w, http.StatusOK, reply)
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	auth.JSONResponse(w, http.StatusOK, envelope{
		"success":    true,
		"camera_url": s.opts.CameraURL,
		"station":    s.opts.Station,
	})
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	s.rosterReply(w, nil)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var f models.Filter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		s.fail(w, &auth.FormError{Messages: []string{"La solicitud no contiene datos JSON válidos."}})
		return
	}
	if err := s.svc.Load(r.Context(), f); err != nil {
		s.hub.PushRoster(s.svc.Roster())
		s.fail(w, err)
		return
	}
	s.hub.PushRoster(s.svc.Roster())
	s.rosterReply(w, nil)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	i, _ := strconv.Atoi(mux.Vars(r)["index"])
	var body struct {
		Present bool `json:"present"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, &auth.FormError{Messages: []string{"La solicitud no contiene datos JSON válidos."}})
		return
	}
	if !s.svc.Roster().Toggle(i, body.Present, s.opts.Now()) {
		auth.JSONResponse(w, http.StatusNotFound, envelope{"success": false, "message": "Fila no encontrada"})
		return
	}
	s.hub.PushRoster(s.svc.Roster())
	s.rosterReply(w, nil)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	msg, err := s.svc.Save(r.Context(), s.svc.Filter())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.hub.PushRoster(s.svc.Roster())
	s.hub.Notice("Se guardó correctamente en reportes.", scan.ColorSuccess)
	s.rosterReply(w, envelope{"message": msg})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	msg, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.hub.PushRoster(s.svc.Roster())
	s.rosterReply(w, envelope{"message": msg})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	f := s.svc.Filter()
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			s.fail(w, &auth.FormError{Messages: []string{"La solicitud no contiene datos JSON válidos."}})
			return
		}
	}
	if err := s.opts.Scanner.Start(r.Context(), f); err != nil {
		s.fail(w, err)
		return
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "filtros": f})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.opts.Scanner.Stop()
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.Filter{Grado: q.Get("grado"), Fecha: q.Get("fecha"), Turno: q.Get("turno")}
	rep, err := s.svc.Report(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	format := q.Get("format")
	if format == "" || format == "json" {
		auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "reporte": rep.Rows, "filtros": rep.Filtros})
		return
	}
	if len(rep.Rows) == 0 {
		s.fail(w, export.ErrEmptyReport)
		return
	}
	switch format {
	case export.FormatExcel:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	case export.FormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	default:
		s.fail(w, &auth.FormError{Messages: []string{"Formato desconocido: " + format}})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(rep.Filtros, format)))
	if err := export.Write(w, rep, format); err != nil {
		s.log.Error("export report", utils.Fields{"format": format, "err": err})
	}
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.opts.Journal == nil {
		auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "entries": []files.JournalEntry{}})
		return
	}
	q := r.URL.Query()
	var entries []files.JournalEntry
	if fecha := q.Get("fecha"); fecha != "" {
		entries = s.opts.Journal.ByFilter(fecha, q.Get("turno"))
	} else {
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		entries = s.opts.Journal.Recent(limit)
	}
	if entries == nil {
		entries = []files.JournalEntry{}
	}
	auth.JSONResponse(w, http.StatusOK, envelope{"success": true, "entries": entries})
}
