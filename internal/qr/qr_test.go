package qr

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"asistenciaqr/internal/scan"
)

func badgeGray(t *testing.T, code string) *image.Gray {
	t.Helper()
	data, err := Badge(code, 256)
	if err != nil {
		t.Fatalf("Badge() failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("badge is not a PNG: %v", err)
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Rect, img, img.Bounds().Min, draw.Src)
	return gray
}

func TestDecodeBadge(t *testing.T) {
	det, ok := NewDecoder().Decode(badgeGray(t, "EST-001"))
	if !ok {
		t.Fatal("expected the badge to decode")
	}
	if det.Text != "EST-001" {
		t.Fatalf("expected EST-001, got %q", det.Text)
	}
	tl, tr, br, bl := det.Corners[0], det.Corners[1], det.Corners[2], det.Corners[3]
	if !(tl.X < tr.X && tl.Y < bl.Y && br.X > bl.X && br.Y > tr.Y) {
		t.Fatalf("corners out of order: %+v", det.Corners)
	}
}

// darkBounds is the box around every dark pixel of img.
func darkBounds(img *image.Gray) image.Rectangle {
	var r image.Rectangle
	first := true
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			if img.GrayAt(x, y).Y >= 128 {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if first {
				r, first = px, false
			} else {
				r = r.Union(px)
			}
		}
	}
	return r
}

func TestCornersHugTheSymbol(t *testing.T) {
	gray := badgeGray(t, "EST-001")
	det, ok := NewDecoder().Decode(gray)
	if !ok {
		t.Fatal("expected the badge to decode")
	}
	b := darkBounds(gray)
	// EST-001 fits a version 1 symbol: 21 modules a side.
	module := float64(b.Dx()) / 21
	want := scan.Corners{
		{X: float64(b.Min.X), Y: float64(b.Min.Y)},
		{X: float64(b.Max.X), Y: float64(b.Min.Y)},
		{X: float64(b.Max.X), Y: float64(b.Max.Y)},
		{X: float64(b.Min.X), Y: float64(b.Max.Y)},
	}
	for i, c := range det.Corners {
		if math.Abs(c.X-want[i].X) > module || math.Abs(c.Y-want[i].Y) > module {
			t.Errorf("corner %d = %+v, want within %.1f px of %+v", i, c, module, want[i])
		}
	}
}

func TestDecodeInverted(t *testing.T) {
	gray := badgeGray(t, "EST-002")
	for i := range gray.Pix {
		gray.Pix[i] = 255 - gray.Pix[i]
	}
	det, ok := NewDecoder().Decode(gray)
	if !ok || det.Text != "EST-002" {
		t.Fatalf("expected inverted badge to decode, got %+v %v", det, ok)
	}
}

func TestDecodeNothing(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	if _, ok := NewDecoder().Decode(blank); ok {
		t.Fatal("blank frame must not decode")
	}
	if _, ok := NewDecoder().Decode(nil); ok {
		t.Fatal("nil frame must not decode")
	}
}

func TestDecodeThroughScaledBuffer(t *testing.T) {
	buf := scan.NewBuffer(128)
	gray := buf.Load(badgeGray(t, "EST-003"))
	if gray.Rect.Dx() != 128 {
		t.Fatalf("expected 128px buffer, got %v", gray.Rect)
	}
	det, ok := NewDecoder().Decode(gray)
	if !ok || det.Text != "EST-003" {
		t.Fatalf("expected downscaled badge to decode, got %+v %v", det, ok)
	}
}

func TestWriteBadge(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteBadge(dir, "PRI-6677-AB12", 0)
	if err != nil {
		t.Fatalf("WriteBadge() failed: %v", err)
	}
	if filepath.Base(path) != "PRI-6677-AB12.png" {
		t.Fatalf("unexpected file name %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Badge("  ", 0); err == nil {
		t.Fatal("expected error for empty code")
	}
}
