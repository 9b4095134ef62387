package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func mjpegServer(t *testing.T, frames ...image.Image) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.WriteHeader(http.StatusOK)
		for _, f := range frames {
			part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			if err := jpeg.Encode(part, f, nil); err != nil {
				return
			}
			w.(http.Flusher).Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFrame(t *testing.T, s *MJPEGSource) image.Image {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		img, err := s.Frame(context.Background())
		if err == nil {
			return img
		}
		if !errors.Is(err, ErrNoFrame) {
			t.Fatalf("Frame() failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no frame before deadline")
	return nil
}

func TestMJPEGSource(t *testing.T) {
	srv := mjpegServer(t, solid(32, 24, color.White))
	s, err := OpenMJPEG(context.Background(), srv.Client(), srv.URL, nil)
	if err != nil {
		t.Fatalf("OpenMJPEG() failed: %v", err)
	}
	img := waitFrame(t, s)
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("unexpected frame size %v", b)
	}
	if err := s.Close(); err != nil {
		t.Logf("close: %v", err)
	}
	if _, err := s.Frame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close must be a no-op, got %v", err)
	}
}

func TestMJPEGFrameVisibleWhileStreamStalls(t *testing.T) {
	// One frame, then silence: the camera never opens the next part.
	srv := mjpegServer(t, solid(16, 16, color.Gray{Y: 200}))
	s, err := OpenMJPEG(context.Background(), srv.Client(), srv.URL, nil)
	if err != nil {
		t.Fatalf("OpenMJPEG() failed: %v", err)
	}
	img := waitFrame(t, s)
	r, _, _, _ := img.At(8, 8).RGBA()
	if v := r >> 8; v < 190 || v > 210 {
		t.Fatalf("unexpected frame content %d", v)
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() blocked on a stalled stream")
	}
}

func TestOpenMJPEGErrors(t *testing.T) {
	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer denied.Close()
	if _, err := OpenMJPEG(context.Background(), nil, denied.URL, nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer plain.Close()
	if _, err := OpenMJPEG(context.Background(), nil, plain.URL, nil); err == nil {
		t.Fatal("expected error for a non MJPEG response")
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"b.png", "a.png"} {
		var buf bytes.Buffer
		if err := png.Encode(&buf, solid(4+i, 4, color.Black)); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir() failed: %v", err)
	}
	var widths []int
	for i := 0; i < 3; i++ {
		img, err := s.Frame(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		widths = append(widths, img.Bounds().Dx())
	}
	// a.png is 5 wide, b.png 4 wide; name order then wrap around.
	if widths[0] != 5 || widths[1] != 4 || widths[2] != 5 {
		t.Fatalf("unexpected replay order %v", widths)
	}
	s.Close()
	if _, err := s.Frame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpenDirErrors(t *testing.T) {
	if _, err := OpenDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
	if _, err := OpenDir(t.TempDir()); err == nil {
		t.Fatal("expected error for a dir without images")
	}
}

func TestStillSourceNilIsNoFrame(t *testing.T) {
	s := NewStillSource(nil)
	if _, err := s.Frame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}
