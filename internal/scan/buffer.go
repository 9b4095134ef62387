package scan

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension bounds the longest side of the processing buffer.
const DefaultMaxDimension = 640

// Buffer is the reusable grayscale processing buffer. Frames larger than
// the maximum dimension are downscaled keeping their aspect ratio. The
// backing image is only reallocated when the scaled size changes.
type Buffer struct {
	max int
	img *image.Gray
}

func NewBuffer(maxDimension int) *Buffer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Buffer{max: maxDimension}
}

// scaled returns the buffer dimensions for a w x h frame.
func (b *Buffer) scaled(w, h int) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= b.max {
		return w, h
	}
	sw := w * b.max / longest
	sh := h * b.max / longest
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// Load copies src into the buffer and returns it. It returns nil for an
// empty frame. The returned image is overwritten by the next Load.
func (b *Buffer) Load(src image.Image) *image.Gray {
	if src == nil || src.Bounds().Empty() {
		return nil
	}
	sb := src.Bounds()
	w, h := b.scaled(sb.Dx(), sb.Dy())
	if b.img == nil || b.img.Rect.Dx() != w || b.img.Rect.Dy() != h {
		b.img = image.NewGray(image.Rect(0, 0, w, h))
	}
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(b.img, b.img.Rect, src, sb.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(b.img, b.img.Rect, src, sb, draw.Src, nil)
	}
	return b.img
}

// Size is the size of the last loaded frame in buffer pixels.
func (b *Buffer) Size() Size {
	if b.img == nil {
		return Size{}
	}
	return Size{W: float64(b.img.Rect.Dx()), H: float64(b.img.Rect.Dy())}
}
