package scan

import (
	"sync"
	"time"
)

// EventType names the outcome of one reported scan.
type EventType string

const (
	EventScanSuccess   EventType = "scan_success"
	EventScanDuplicate EventType = "scan_duplicate"
	EventScanNotFound  EventType = "scan_not_found"
	EventScanError     EventType = "scan_error"
)

// Event is published once per report, after its result is applied.
type Event struct {
	ID          string
	Type        EventType
	Code        string
	StudentName string
	Corners     Corners
	Fecha       string
	Turno       string
	At          time.Time
	Err         error
}

// Dispatcher fans events out to subscribers in subscription order.
// Handlers never run concurrently with each other.
type Dispatcher struct {
	mu       sync.Mutex
	emit     sync.Mutex
	handlers []func(Event)
}

func (d *Dispatcher) Subscribe(h func(Event)) {
	if h == nil {
		return
	}
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatch(e Event) {
	d.mu.Lock()
	hs := make([]func(Event), len(d.handlers))
	copy(hs, d.handlers)
	d.mu.Unlock()

	d.emit.Lock()
	defer d.emit.Unlock()
	for _, h := range hs {
		h(e)
	}
}
