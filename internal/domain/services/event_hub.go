package services

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"relief-http-service/pkg/logger"
)

// Dashboard event types
const (
	EventNeedCreated      = "need.created"
	EventNeedVerified     = "need.verified"
	EventNeedGeocoded     = "need.geocoded"
	EventMissionCompleted = "mission.completed"
	EventMissionRerouted  = "mission.rerouted"
	EventAlertDispatched  = "alert.dispatched"
)

const (
	wsSendBuffer = 32
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// Event is one message on the live dashboard feed
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// InterfaceEventHub defines the live event feed interface
type InterfaceEventHub interface {
	Publish(eventType string, data interface{})
	Serve(w http.ResponseWriter, r *http.Request) error
	ClientCount() int
	Close()
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// EventHub broadcasts pipeline events to websocket clients. Slow clients
// whose buffer is full are disconnected; publishing never blocks.
type EventHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[uuid.UUID]*wsClient
}

// NewEventHub creates an event hub accepting the given CORS origin ("*" for any)
func NewEventHub(allowedOrigin string) InterfaceEventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		clients: make(map[uuid.UUID]*wsClient),
	}
}

// 1 Publish sends an event to every connected client
func (h *EventHub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		logger.Warning("[Events] failed to marshal %s: %v", eventType, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			logger.Warning("[Events] client %s too slow, dropping", c.id)
			c.stop()
		}
	}
}

// 2 Serve upgrades the request and streams events until the client leaves
func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &wsClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	logger.Info("[Events] client %s connected", c.id)

	go h.readPump(c)
	go h.writePump(c)
	return nil
}

// 3 ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// 4 Close disconnects every client
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.stop()
		delete(h.clients, id)
	}
}

func (h *EventHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.stop()
}

// readPump only handles control frames; the feed is one-way
func (h *EventHub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		logger.Info("[Events] client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		}
	}
}
