// Package status broadcasts status messages and stage changes to websocket
// clients.
package status

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mogaika/hello_stage/stage"
)

const (
	INFO = iota
	ERROR
	PROGRESS
	CHANGE
)

const (
	pingPeriod   = 30 * time.Second
	writeTimeout = 40 * time.Second
)

type Status struct {
	Message  string
	Time     time.Time
	Type     int
	Progress float32
	Changes  []stage.Change `json:",omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Warnf("ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Warnf("ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drops incoming messages and notices closed connections.
func (c *client) readPump() {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// Hub fans every status out to all connected clients. A newly connected
// client first receives the last status sent.
type Hub struct {
	log       logrus.FieldLogger
	upgrader  websocket.Upgrader
	broadcast chan *Status
	done      chan struct{}
	closeOnce sync.Once

	lock    sync.Mutex
	clients map[*client]bool
	last    []byte
}

func NewHub(log logrus.FieldLogger) *Hub {
	h := &Hub{
		log:       log,
		broadcast: make(chan *Status, 16),
		done:      make(chan struct{}),
		clients:   make(map[*client]bool),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case s := <-h.broadcast:
			data, err := json.Marshal(s)
			if err != nil {
				h.log.Errorf("failed to marshal status: %v", err)
				continue
			}
			h.lock.Lock()
			h.last = data
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// too slow, drop it
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.lock.Unlock()
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.clients, c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request to a websocket and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("ws upgrade error: %v", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 32)}

	h.lock.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.lock.Unlock()

	go c.writePump()
	go c.readPump()
}

// Close disconnects every client and stops broadcasting.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.lock.Lock()
		defer h.lock.Unlock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	})
}

func (h *Hub) send(s *Status) {
	s.Time = time.Now()
	select {
	case h.broadcast <- s:
	case <-h.done:
	}
}

func (h *Hub) Status(msg string, _type int, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	h.send(&Status{Message: msg, Type: _type, Progress: progress})
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), INFO, 0.0)
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), ERROR, 0.0)
}

func (h *Hub) Progress(progress float32, format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), PROGRESS, progress)
}

// StageChanged broadcasts a batch of stage changes. It has the signature
// expected by stage.Subscribe.
func (h *Hub) StageChanged(changes []stage.Change) {
	h.send(&Status{
		Message: fmt.Sprintf("%d stage changes", len(changes)),
		Type:    CHANGE,
		Changes: changes,
	})
}
