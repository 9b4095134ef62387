package scan

// Point is a position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height in pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Zero reports whether either side is not positive.
func (s Size) Zero() bool { return s.W <= 0 || s.H <= 0 }

// Corners are the four corners of a detected code in the order
// top-left, top-right, bottom-right, bottom-left.
type Corners [4]Point

// MapCorners scales corners from processing buffer space into display
// space with independent horizontal and vertical ratios. A zero buffer
// size leaves the corners unchanged.
func MapCorners(c Corners, display, buffer Size) Corners {
	if buffer.Zero() || display.Zero() {
		return c
	}
	sx := display.W / buffer.W
	sy := display.H / buffer.H
	var out Corners
	for i, p := range c {
		out[i] = Point{X: p.X * sx, Y: p.Y * sy}
	}
	return out
}
