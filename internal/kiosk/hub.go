// Package kiosk serves the desk display: a browser page that shows the
// camera overlay, plays cues, shows notices and edits the roster. The
// scanner talks to the page through the websocket Hub.
package kiosk

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"asistenciaqr/internal/attendance"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/scan"
	"asistenciaqr/internal/utils"
)

// Message types exchanged over /ws.
const (
	MsgOverlay  = "overlay"
	MsgClear    = "clear"
	MsgCue      = "cue"
	MsgNotice   = "notice"
	MsgRoster   = "roster"
	MsgViewport = "viewport"
)

// Message is one websocket frame, in either direction.
type Message struct {
	Type    string                 `json:"type"`
	Points  []scan.Point           `json:"points,omitempty"`
	Color   scan.Color             `json:"color,omitempty"`
	Cue     scan.Cue               `json:"cue,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Rows    []models.AttendanceRow `json:"rows,omitempty"`
	Summary *attendance.Summary    `json:"summary,omitempty"`
	Width   float64                `json:"width,omitempty"`
	Height  float64                `json:"height,omitempty"`
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans display messages out to every connected page. It implements
// scan.Display; the rendered video size comes from the pages' viewport
// reports.
type Hub struct {
	upgrader websocket.Upgrader
	log      *utils.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	viewport scan.Size
	greet    func() []Message
}

var _ scan.Display = (*Hub)(nil)

// NewHub creates a hub accepting pages from origin ("*" accepts any).
func NewHub(origin string, log *utils.Logger) *Hub {
	if log == nil {
		log = utils.Discard()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if origin == "" || origin == "*" {
					return true
				}
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			},
		},
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// OnConnect sets the messages sent to every page as it connects.
func (h *Hub) OnConnect(greet func() []Message) {
	h.mu.Lock()
	h.greet = greet
	h.mu.Unlock()
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues m for every page. A page that cannot keep up is dropped.
func (h *Hub) Broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- m:
		default:
			h.log.Warn("display too slow, dropping", utils.Fields{"remote": c.conn.RemoteAddr().String()})
			h.removeLocked(c)
		}
	}
}

func (h *Hub) Draw(c scan.Corners, color scan.Color) {
	h.Broadcast(Message{Type: MsgOverlay, Points: c[:], Color: color})
}

func (h *Hub) Clear() { h.Broadcast(Message{Type: MsgClear}) }

func (h *Hub) Play(c scan.Cue) { h.Broadcast(Message{Type: MsgCue, Cue: c}) }

func (h *Hub) Notice(text string, color scan.Color) {
	h.Broadcast(Message{Type: MsgNotice, Text: text, Color: color})
}

// DisplaySize is the last viewport reported by a page.
func (h *Hub) DisplaySize() scan.Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewport
}

// PushRoster sends the current table to every page.
func (h *Hub) PushRoster(r *attendance.Roster) {
	h.Broadcast(rosterMessage(r))
}

func rosterMessage(r *attendance.Roster) Message {
	sum := r.Summary()
	rows := r.Rows()
	if rows == nil {
		rows = []models.AttendanceRow{}
	}
	return Message{Type: MsgRoster, Rows: rows, Summary: &sum}
}

// ServeWS upgrades the request and serves one page until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", utils.Fields{"err": err})
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}

	h.mu.Lock()
	greet := h.greet
	h.mu.Unlock()
	var hello []Message
	if greet != nil {
		hello = greet()
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	for _, m := range hello {
		select {
		case c.send <- m:
		default:
		}
	}
	h.mu.Unlock()
	h.log.Info("display connected", utils.Fields{"remote": conn.RemoteAddr().String()})

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump reads viewport reports until the page goes away.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.log.Info("display disconnected", utils.Fields{"remote": c.conn.RemoteAddr().String()})
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("display read", utils.Fields{"err": err})
			}
			return
		}
		if m.Type == MsgViewport && m.Width > 0 && m.Height > 0 {
			h.mu.Lock()
			h.viewport = scan.Size{W: m.Width, H: m.Height}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case m, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every page.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
