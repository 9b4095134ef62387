// Package camera provides frame sources for the scanner: a network
// camera speaking MJPEG over HTTP and a directory of still images.
package camera

import "github.com/pkg/errors"

var (
	// ErrNoFrame means no frame is ready yet. Callers skip the cycle.
	ErrNoFrame = errors.New("no frame available")
	// ErrPermissionDenied means the device refused access.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrClosed is returned by Frame after Close.
	ErrClosed = errors.New("camera closed")
)
