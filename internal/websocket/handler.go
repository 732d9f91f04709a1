package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader is shared across handler instances for consistent settings.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; the deployment fronts this with its own
		// origin policy.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// EventSink receives inbound traffic and lifecycle notifications from the
// transport. Implemented by the hub; declared here so the transport does
// not import it.
type EventSink interface {
	Dispatch(connID string, data []byte) error
	NotifyDisconnect(connID string)
}

// Handler upgrades HTTP requests to WebSocket connections and runs their
// read/heartbeat lifecycle. Identity is assigned at connect time; clients
// introduce themselves afterwards with a join event.
type Handler struct {
	registry     *Registry
	sink         EventSink
	pingInterval time.Duration
	readTimeout  time.Duration
	bufferSize   int
}

// NewHandler creates a WebSocket handler.
func NewHandler(registry *Registry, sink EventSink, pingInterval, readTimeout time.Duration, bufferSize int) *Handler {
	return &Handler{
		registry:     registry,
		sink:         sink,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
		bufferSize:   bufferSize,
	}
}

// HandleWebSocket handles GET /ws.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(wsConn, h.bufferSize)
	if err := h.registry.Register(conn); err != nil {
		log.Printf("Connection registration failed: %v", err)
		_ = conn.Close()
		return
	}

	log.Printf("Client connected: conn=%s", conn.ID())
	go h.handleConnection(conn)
}

// handleConnection runs heartbeat monitoring and the read pump for one
// connection. On any exit the disconnect is treated as an implicit room
// leave via the sink.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.sink.NotifyDisconnect(conn.ID())
		h.registry.Unregister(conn)
		_ = conn.Close()
		log.Printf("Client disconnected: conn=%s", conn.ID())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: conn=%s err=%v", conn.ID(), err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}
		if err := h.sink.Dispatch(conn.ID(), data); err != nil {
			log.Printf("Event dispatch failed: conn=%s err=%v", conn.ID(), err)
		}
	}
}
