// Package qr decodes student badges from camera frames and renders new
// badges as PNG images.
package qr

import (
	"image"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"asistenciaqr/internal/scan"
)

// Decoder finds a QR code in a grayscale frame, trying normal polarity
// first and then the inverted image (light code on dark background).
// It is not safe for concurrent use.
type Decoder struct {
	reader   gozxing.Reader
	hints    map[gozxing.DecodeHintType]interface{}
	inverted *image.Gray
}

var _ scan.Decoder = (*Decoder)(nil)

func NewDecoder() *Decoder {
	return &Decoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the detection of img, or false when no code is found.
func (d *Decoder) Decode(img *image.Gray) (scan.Detection, bool) {
	if img == nil || img.Rect.Empty() {
		return scan.Detection{}, false
	}
	if det, ok := d.decode(img); ok {
		return det, true
	}
	return d.decode(d.invert(img))
}

func (d *Decoder) decode(img image.Image) (scan.Detection, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return scan.Detection{}, false
	}
	res, err := d.reader.Decode(bmp, d.hints)
	d.reader.Reset()
	if err != nil || res.GetText() == "" {
		return scan.Detection{}, false
	}
	corners, ok := cornersOf(res.GetResultPoints(), img.Bounds().Min)
	if !ok {
		return scan.Detection{}, false
	}
	return scan.Detection{Text: res.GetText(), Corners: corners}, true
}

// finderOffset is the distance, in modules, from a finder pattern center
// to the outer edge of the symbol.
const finderOffset = 3.5

type moduleSizer interface {
	GetEstimatedModuleSize() float64
}

// cornersOf turns the finder pattern centers (bottom-left, top-left,
// top-right) into the outer corners of the symbol. Each center is pushed
// out by 3.5 modules along the symbol axes; bottom-right completes the
// parallelogram.
func cornersOf(pts []gozxing.ResultPoint, origin image.Point) (scan.Corners, bool) {
	if len(pts) < 3 {
		return scan.Corners{}, false
	}
	at := func(p gozxing.ResultPoint) scan.Point {
		return scan.Point{X: p.GetX() - float64(origin.X), Y: p.GetY() - float64(origin.Y)}
	}
	bl, tl, tr := at(pts[0]), at(pts[1]), at(pts[2])

	var module float64
	var n int
	for _, p := range pts[:3] {
		if ms, ok := p.(moduleSizer); ok && ms.GetEstimatedModuleSize() > 0 {
			module += ms.GetEstimatedModuleSize()
			n++
		}
	}
	if n > 0 {
		d := finderOffset * module / float64(n)
		u, uok := unit(tl, tr)
		v, vok := unit(tl, bl)
		if uok && vok {
			tl = scan.Point{X: tl.X - d*(u.X+v.X), Y: tl.Y - d*(u.Y+v.Y)}
			tr = scan.Point{X: tr.X + d*(u.X-v.X), Y: tr.Y + d*(u.Y-v.Y)}
			bl = scan.Point{X: bl.X + d*(v.X-u.X), Y: bl.Y + d*(v.Y-u.Y)}
		}
	}
	br := scan.Point{X: tr.X + bl.X - tl.X, Y: tr.Y + bl.Y - tl.Y}
	return scan.Corners{tl, tr, br, bl}, true
}

// unit is the direction from a to b.
func unit(a, b scan.Point) (scan.Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return scan.Point{}, false
	}
	return scan.Point{X: dx / l, Y: dy / l}, true
}

// invert writes the negative of img into a reused buffer.
func (d *Decoder) invert(img *image.Gray) *image.Gray {
	if d.inverted == nil || d.inverted.Rect != img.Rect {
		d.inverted = image.NewGray(img.Rect)
	}
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, y):]
		dst := d.inverted.Pix[d.inverted.PixOffset(img.Rect.Min.X, y):]
		for x := 0; x < img.Rect.Dx(); x++ {
			dst[x] = 255 - src[x]
		}
	}
	return d.inverted
}
