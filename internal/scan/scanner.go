// Package scan is the attendance desk scanner loop: it pulls camera
// frames, decodes QR badges, debounces them, reports each admitted code to
// the backend and turns the reply into overlay, cue and notice feedback.
package scan

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"asistenciaqr/internal/camera"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/utils"
)

var (
	// ErrCameraUnavailable is returned by Start when the frame source
	// cannot be opened (missing device, permission denied).
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrFilterIncomplete is returned by Start without a date and shift.
	ErrFilterIncomplete = errors.New("fecha and turno are required to scan")
	// ErrRunning is returned by Start while a session is active or
	// another Start is opening the camera.
	ErrRunning = errors.New("scanner already running")
	// ErrStartCanceled is returned by Start when Stop is called while the
	// camera is still opening.
	ErrStartCanceled = errors.New("scanner stopped while starting")
)

// Notices shown by Start.
const (
	FilterNotice  = "Por favor, selecciona fecha y turno antes de escanear."
	CameraNotice  = "No se pudo acceder a la cámara. Revise los permisos y que el dispositivo esté conectado."
	StartedNotice = "Cámara activada. Apunte el QR al lente."
)

// Strategy is a way of turning badges into attendance events.
type Strategy interface {
	Start(ctx context.Context, f models.Filter) error
	Stop()
	OnDetect(h func(Event))
}

// Source yields camera frames. Frame returns camera.ErrNoFrame while no
// frame is ready.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// OpenFunc opens the camera for one scanning session.
type OpenFunc func(ctx context.Context) (Source, error)

// Detection is a decoded code with its corners in buffer pixels.
type Detection struct {
	Text    string
	Corners Corners
}

// Decoder finds one QR code in a grayscale frame.
type Decoder interface {
	Decode(img *image.Gray) (Detection, bool)
}

// Reporter submits a decoded code. *api.Client implements it.
type Reporter interface {
	ReportScan(ctx context.Context, req models.ScanRequest) (models.ScanResponse, error)
}

// Overlay draws the detection polygon over the displayed video.
type Overlay interface {
	Draw(c Corners, color Color)
	Clear()
	// DisplaySize is the rendered size of the video, zero when unknown.
	DisplaySize() Size
}

type Cues interface {
	Play(c Cue)
}

type Notifier interface {
	Notice(text string, color Color)
}

// Display is everything the desk screen offers the scanner.
type Display interface {
	Overlay
	Cues
	Notifier
}

// Marker flags a student present locally. *attendance.Roster implements it.
type Marker interface {
	MarkPresent(code string, at time.Time) bool
}

// Pacer paces the loop at the display refresh cadence. Each tick carries
// the frame timestamp.
type Pacer interface {
	Ticks() <-chan time.Time
	Stop()
}

type tickerPacer struct{ t *time.Ticker }

// NewTickerPacer returns a Pacer firing fps times per second.
func NewTickerPacer(fps int) Pacer {
	if fps <= 0 {
		fps = 30
	}
	return tickerPacer{t: time.NewTicker(time.Second / time.Duration(fps))}
}

func (p tickerPacer) Ticks() <-chan time.Time { return p.t.C }
func (p tickerPacer) Stop()                   { p.t.Stop() }

// Options wires a Scanner.
type Options struct {
	Open     OpenFunc
	Decoder  Decoder
	Reporter Reporter
	Display  Display
	Roster   Marker

	// NewPacer defaults to a ticker at FPS.
	NewPacer     func() Pacer
	FPS          int
	MaxDimension int
	Debounce     time.Duration
	// Now stamps local attendance times; defaults to time.Now.
	Now func() time.Time
	Log *utils.Logger
}

// Scanner decodes badges on the desk machine. It is the only Strategy.
type Scanner struct {
	opts     Options
	events   Dispatcher
	inflight sync.WaitGroup

	mu  sync.Mutex
	run *run
	// starting is set while Start opens the camera outside the lock;
	// abort records a Stop that arrived meanwhile.
	starting bool
	abort    bool
}

var _ Strategy = (*Scanner)(nil)

// run is the state of one Start/Stop session.
type run struct {
	filter  models.Filter
	ctx     context.Context
	cancel  context.CancelFunc
	source  Source
	pacer   Pacer
	results chan result
	done    chan struct{}

	// owned by the loop goroutine
	buf       *Buffer
	debouncer *Debouncer
	current   *Detection
	drawn     bool
	cued      string
}

type result struct {
	code    string
	corners Corners
	resp    models.ScanResponse
	err     error
}

// New creates an idle scanner.
func New(opts Options) *Scanner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = utils.Discard()
	}
	if opts.NewPacer == nil {
		fps := opts.FPS
		opts.NewPacer = func() Pacer { return NewTickerPacer(fps) }
	}
	return &Scanner{opts: opts}
}

// OnDetect subscribes h to scan events. Live results are delivered on the
// loop goroutine.
func (s *Scanner) OnDetect(h func(Event)) { s.events.Subscribe(h) }

// Running reports whether a session is active.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil || s.starting
}

// Start opens the camera and begins scanning for the given date and shift.
func (s *Scanner) Start(ctx context.Context, f models.Filter) error {
	if f.Fecha == "" || f.Turno == "" {
		s.opts.Display.Notice(FilterNotice, ColorError)
		return ErrFilterIncomplete
	}

	s.mu.Lock()
	if s.run != nil || s.starting {
		s.mu.Unlock()
		return ErrRunning
	}
	s.starting = true
	s.abort = false
	s.mu.Unlock()

	src, err := s.opts.Open(ctx)

	s.mu.Lock()
	aborted := s.abort
	if err != nil || aborted {
		s.starting = false
		s.abort = false
		s.mu.Unlock()
		if err != nil {
			s.opts.Log.Error("open camera", utils.Fields{"err": err})
			s.opts.Display.Notice(CameraNotice, ColorError)
			return errors.Wrapf(ErrCameraUnavailable, "%v", err)
		}
		if err := src.Close(); err != nil {
			s.opts.Log.Warn("close camera", utils.Fields{"err": err})
		}
		return ErrStartCanceled
	}
	rctx, cancel := context.WithCancel(context.Background())
	r := &run{
		filter:  f,
		ctx:     rctx,
		cancel:  cancel,
		source:  src,
		pacer:   s.opts.NewPacer(),
		results: make(chan result),
		done:    make(chan struct{}),

		buf:       NewBuffer(s.opts.MaxDimension),
		debouncer: NewDebouncer(s.opts.Debounce),
	}
	s.run = r
	s.starting = false
	go s.loop(r)
	s.mu.Unlock()

	s.opts.Log.Info("scanner started", utils.Fields{"fecha": f.Fecha, "turno": f.Turno, "grado": f.Grado})
	s.opts.Display.Notice(StartedNotice, ColorPending)
	return nil
}

// Stop closes the camera, cancels the pacer, waits for the loop to exit
// and clears the overlay. No cycle runs after Stop returns.
func (s *Scanner) Stop() {
	s.mu.Lock()
	r := s.run
	s.run = nil
	if r == nil && s.starting {
		s.abort = true
	}
	s.mu.Unlock()
	if r == nil {
		return
	}

	r.cancel()
	if err := r.source.Close(); err != nil {
		s.opts.Log.Warn("close camera", utils.Fields{"err": err})
	}
	r.pacer.Stop()
	<-r.done
	s.opts.Display.Clear()
	s.opts.Log.Info("scanner stopped")
}

// Wait blocks until every report in flight has been applied.
func (s *Scanner) Wait() { s.inflight.Wait() }

func (s *Scanner) loop(r *run) {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case now, ok := <-r.pacer.Ticks():
			if !ok {
				return
			}
			s.cycle(r, now)
		case res := <-r.results:
			s.apply(r, res, true)
		}
	}
}

// cycle processes one frame.
func (s *Scanner) cycle(r *run, now time.Time) {
	frame, err := r.source.Frame(r.ctx)
	if err != nil {
		if r.ctx.Err() != nil || errors.Is(err, camera.ErrNoFrame) {
			return
		}
		s.opts.Log.Warn("read frame", utils.Fields{"err": err})
		return
	}
	gray := r.buf.Load(frame)
	if gray == nil {
		return
	}

	det, ok := s.opts.Decoder.Decode(gray)
	if !ok {
		r.current = nil
		if r.drawn {
			s.opts.Display.Clear()
			r.drawn = false
		}
		return
	}
	r.current = &det
	corners := s.mapped(r, det.Corners)

	if !r.debouncer.Admit(det.Text, now) {
		// The negative cue plays once per run of suppressed frames, not on each one.
		if r.cued != det.Text {
			s.opts.Display.Play(CueNegative)
			r.cued = det.Text
		}
		s.opts.Display.Draw(corners, ColorDuplicate)
		r.drawn = true
		return
	}
	r.cued = ""
	s.opts.Display.Draw(corners, ColorPending)
	r.drawn = true
	s.report(r, det.Text, corners)
}

func (s *Scanner) mapped(r *run, c Corners) Corners {
	buffer := r.buf.Size()
	display := s.opts.Display.DisplaySize()
	if display.Zero() {
		display = buffer
	}
	return MapCorners(c, display, buffer)
}

// report sends the code on its own goroutine. The result is handed back
// to the loop, or applied directly when the session has already ended.
func (s *Scanner) report(r *run, code string, corners Corners) {
	req := models.ScanRequest{CodigoID: code, Fecha: r.filter.Fecha, Turno: r.filter.Turno}
	s.opts.Log.Debug("report scan", utils.Fields{"codigo_id": code})
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		resp, err := s.opts.Reporter.ReportScan(context.Background(), req)
		res := result{code: code, corners: corners, resp: resp, err: err}
		select {
		case r.results <- res:
		case <-r.done:
			s.apply(r, res, false)
		}
	}()
}

// apply turns a report result into feedback. Results of a stopped session
// still mark the roster and publish their event but draw nothing.
func (s *Scanner) apply(r *run, res result, live bool) {
	fb := FeedbackFor(res.resp, res.err)
	if res.err != nil {
		s.opts.Log.Error("report scan", utils.Fields{"codigo_id": res.code, "err": res.err})
	} else if fb.Event == EventScanError {
		s.opts.Log.Error("report scan", utils.Fields{"codigo_id": res.code, "status": string(res.resp.Status)})
	}

	code := res.resp.CodigoID
	if code == "" {
		code = res.code
	}
	if fb.MarkPresent && s.opts.Roster != nil {
		s.opts.Roster.MarkPresent(code, s.opts.Now())
	}

	if live {
		if fb.Cue != CueNone {
			s.opts.Display.Play(fb.Cue)
		}
		if fb.Color != "" && r.current != nil && r.current.Text == res.code {
			s.opts.Display.Draw(s.mapped(r, r.current.Corners), fb.Color)
			r.drawn = true
		}
		if fb.Notice != "" {
			s.opts.Display.Notice(fb.Notice, fb.NoticeColor)
		}
	}

	e := Event{
		ID:          uuid.NewString(),
		Type:        fb.Event,
		Code:        code,
		StudentName: res.resp.StudentName,
		Corners:     res.corners,
		Fecha:       r.filter.Fecha,
		Turno:       r.filter.Turno,
		At:          s.opts.Now(),
		Err:         res.err,
	}
	if fb.Event == EventScanError && e.Err == nil {
		e.Err = errors.Errorf("unknown scan status %q", res.resp.Status)
	}
	s.events.Dispatch(e)
}
