package camera

import (
	"context"
	"image"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"asistenciaqr/internal/utils"
)

// MJPEGSource reads a multipart/x-mixed-replace JPEG stream and keeps the
// most recent frame.
type MJPEGSource struct {
	url    string
	body   io.ReadCloser
	cancel context.CancelFunc
	done   chan struct{}
	log    *utils.Logger

	mu     sync.Mutex
	latest image.Image
	err    error
	closed bool
}

// OpenMJPEG connects to the stream at url. It fails when the camera
// cannot be reached or does not serve an MJPEG stream.
func OpenMJPEG(ctx context.Context, client *http.Client, url string, log *utils.Logger) (*MJPEGSource, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = utils.Discard()
	}
	sctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(sctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "camera url %q", url)
	}
	stop := context.AfterFunc(ctx, cancel)
	resp, err := client.Do(req)
	stop()
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "connect camera %s", url)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		cancel()
		return nil, errors.Wrapf(ErrPermissionDenied, "camera %s: %s", url, resp.Status)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		cancel()
		return nil, errors.Errorf("camera %s: %s", url, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return nil, errors.Errorf("camera %s: not an MJPEG stream (%q)", url, resp.Header.Get("Content-Type"))
	}

	s := &MJPEGSource{
		url:    url,
		body:   resp.Body,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    log,
	}
	go s.read(multipart.NewReader(resp.Body, params["boundary"]))
	return s, nil
}

func (s *MJPEGSource) read(mr *multipart.Reader) {
	defer close(s.done)
	for {
		part, err := mr.NextPart()
		if err != nil {
			s.fail(err)
			return
		}
		img, err := jpeg.Decode(part)
		if err != nil {
			s.log.Debug("skip undecodable frame", utils.Fields{"err": err})
			part.Close()
			continue
		}
		// Publish before Close: Close waits for the next boundary.
		s.mu.Lock()
		s.latest = img
		s.mu.Unlock()
		part.Close()
	}
}

func (s *MJPEGSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	s.err = errors.Wrapf(err, "camera stream %s", s.url)
}

// Frame returns the most recent frame, or ErrNoFrame before the first one
// arrives. Once the stream ends it returns the error that ended it.
func (s *MJPEGSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, ErrClosed
	case s.err != nil:
		return nil, s.err
	case s.latest != nil:
		return s.latest, nil
	}
	return nil, ErrNoFrame
}

// Close stops the stream and waits for the reader to exit.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.body.Close()
	<-s.done
	return err
}
