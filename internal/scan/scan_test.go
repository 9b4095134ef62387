package scan

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"asistenciaqr/internal/models"
)

func TestMapCorners(t *testing.T) {
	c := Corners{{10, 10}, {50, 10}, {50, 40}, {10, 40}}
	got := MapCorners(c, Size{W: 200, H: 100}, Size{W: 100, H: 50})
	want := Corners{{20, 20}, {100, 20}, {100, 80}, {20, 80}}
	if got != want {
		t.Fatalf("MapCorners() = %v, want %v", got, want)
	}
	if MapCorners(c, Size{W: 200, H: 100}, Size{}) != c {
		t.Fatal("zero buffer size must leave corners unchanged")
	}
}

func TestMapCornersPreservesShape(t *testing.T) {
	c := Corners{{3, 7}, {31, 9}, {29, 38}, {1, 35}}
	display, buffer := Size{W: 1280, H: 720}, Size{W: 640, H: 360}
	got := MapCorners(c, display, buffer)
	sx, sy := display.W/buffer.W, display.H/buffer.H
	for i := range c {
		for j := range c {
			dx, dy := c[j].X-c[i].X, c[j].Y-c[i].Y
			gx, gy := got[j].X-got[i].X, got[j].Y-got[i].Y
			if math.Abs(gx-dx*sx) > 1e-9 || math.Abs(gy-dy*sy) > 1e-9 {
				t.Fatalf("edge %d->%d not scaled linearly", i, j)
			}
		}
	}
}

func TestDebouncer(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	tests := []struct {
		name   string
		first  string
		second string
		gap    time.Duration
		want   bool
	}{
		{"same value inside window", "EST-001", "EST-001", 500 * time.Millisecond, false},
		{"same value at window edge", "EST-001", "EST-001", 1500 * time.Millisecond, false},
		{"same value after window", "EST-001", "EST-001", 2 * time.Second, true},
		{"different value inside window", "EST-001", "EST-002", 100 * time.Millisecond, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(0)
			if !d.Admit(tt.first, t0) {
				t.Fatal("first decode must be admitted")
			}
			if got := d.Admit(tt.second, t0.Add(tt.gap)); got != tt.want {
				t.Fatalf("Admit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDebouncerRecordMovesOnlyWhenAdmitted(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	d := NewDebouncer(time.Second)
	d.Admit("A", t0)
	d.Admit("A", t0.Add(900*time.Millisecond))
	if !d.Admit("A", t0.Add(1100*time.Millisecond)) {
		t.Fatal("a suppressed decode must not extend the window")
	}
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(640)
	if b.Load(image.NewRGBA(image.Rect(0, 0, 0, 0))) != nil {
		t.Fatal("empty frame must yield nil")
	}
	first := b.Load(image.NewRGBA(image.Rect(0, 0, 1280, 720)))
	if first.Rect.Dx() != 640 || first.Rect.Dy() != 360 {
		t.Fatalf("expected 640x360, got %v", first.Rect)
	}
	again := b.Load(image.NewRGBA(image.Rect(0, 0, 1280, 720)))
	if again != first {
		t.Fatal("same sized frames must reuse the buffer")
	}
	small := b.Load(image.NewRGBA(image.Rect(0, 0, 320, 240)))
	if small.Rect.Dx() != 320 || small.Rect.Dy() != 240 {
		t.Fatalf("small frames are not scaled, got %v", small.Rect)
	}
	if b.Size() != (Size{W: 320, H: 240}) {
		t.Fatalf("unexpected size %v", b.Size())
	}
}

func TestBufferConvertsToGray(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.White)
	src.Set(1, 0, color.Black)
	g := NewBuffer(0).Load(src)
	if g.GrayAt(0, 0).Y != 255 || g.GrayAt(1, 0).Y != 0 {
		t.Fatalf("unexpected pixels %v", g.Pix)
	}
}

func TestFeedbackForIsTotal(t *testing.T) {
	tests := []struct {
		name  string
		resp  models.ScanResponse
		err   error
		event EventType
		cue   Cue
		color Color
		mark  bool
	}{
		{"success", models.ScanResponse{Status: models.ScanSuccess, StudentName: "Mamani Rosa"}, nil, EventScanSuccess, CuePositive, ColorSuccess, true},
		{"duplicate", models.ScanResponse{Status: models.ScanDuplicate}, nil, EventScanDuplicate, CueNegative, ColorDuplicate, false},
		{"not found", models.ScanResponse{Status: models.ScanNotFound}, nil, EventScanNotFound, CueNegative, ColorNotFound, false},
		{"transport failure", models.ScanResponse{}, errors.New("dial tcp: refused"), EventScanError, CueNone, "", false},
		{"unknown status", models.ScanResponse{Status: "late"}, nil, EventScanError, CueNone, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := FeedbackFor(tt.resp, tt.err)
			if fb.Event != tt.event || fb.Cue != tt.cue || fb.Color != tt.color || fb.MarkPresent != tt.mark {
				t.Fatalf("FeedbackFor() = %+v", fb)
			}
			if fb.Notice == "" {
				t.Fatal("every outcome shows a notice")
			}
		})
	}
	if fb := FeedbackFor(models.ScanResponse{}, errors.New("x")); fb.Notice != ConnectivityNotice {
		t.Fatalf("transport failure must show the connectivity notice, got %q", fb.Notice)
	}
}

func TestDispatcherOrder(t *testing.T) {
	var d Dispatcher
	var got []int
	d.Subscribe(func(Event) { got = append(got, 1) })
	d.Subscribe(nil)
	d.Subscribe(func(Event) { got = append(got, 2) })
	d.Dispatch(Event{Type: EventScanSuccess})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected order %v", got)
	}
}
