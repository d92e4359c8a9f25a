package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"browserx/internal/application/port/output"
)

var _ output.LogSink = (*Hub)(nil)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Event is the frame sent to websocket clients.
type Event struct {
	Type string    `json:"type"`
	Line string    `json:"line"`
	Time time.Time `json:"time"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts log lines to every connected websocket client. New clients
// first receive the most recent lines. Slow clients are dropped.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*client
	backlog  [][]byte
	keep     int
	closed   bool
	upgrader websocket.Upgrader
	logger   output.LoggerPort
}

func NewHub(keep int, logger output.LoggerPort) *Hub {
	keep = min(keep, sendBuffer)
	return &Hub{
		clients: make(map[string]*client),
		keep:    keep,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the control plane binds to localhost; any origin may watch logs
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) Log(line string) {
	msg, err := json.Marshal(Event{Type: "log", Line: line, Time: time.Now().UTC()})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.keep > 0 {
		h.backlog = append(h.backlog, msg)
		if len(h.backlog) > h.keep {
			h.backlog = h.backlog[len(h.backlog)-h.keep:]
		}
	}
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.drop(id, c)
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(id string, c *client) {
	if _, ok := h.clients[id]; !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	if h.logger != nil {
		h.logger.Debug("Websocket client dropped", "client", id)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("Websocket upgrade failed", "error", err)
		}
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	for _, msg := range h.backlog {
		c.send <- msg
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()
	h.readPump(c)
	<-done
}

// readPump only watches for the peer going away.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		h.drop(c.id, c)
		h.mu.Unlock()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and stops accepting new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		h.drop(id, c)
	}
}
