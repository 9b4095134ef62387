package scan

import "time"

// DefaultDebounce is the cooldown before the same code is reported again.
const DefaultDebounce = 1500 * time.Millisecond

// Debouncer suppresses repeated reports of one value inside a window.
// It is not safe for concurrent use; the scanner loop owns it.
type Debouncer struct {
	window time.Duration
	value  string
	at     time.Time
	seen   bool
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window}
}

// Admit reports whether value should be reported at now, and records it
// when so. A different value, or the same value after the window, is
// admitted.
func (d *Debouncer) Admit(value string, now time.Time) bool {
	if d.seen && value == d.value && now.Sub(d.at) <= d.window {
		return false
	}
	d.value, d.at, d.seen = value, now, true
	return true
}

// Window returns the configured cooldown.
func (d *Debouncer) Window() time.Duration { return d.window }
