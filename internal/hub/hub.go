package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"focushub/pkg/types"
)

const (
	eventQueueSize      = 1000
	disconnectQueueSize = 256
	expirationQueueSize = 256
)

// EventRouter is the routing logic the hub drives. All four methods are
// only ever called from the hub's run loop goroutine.
type EventRouter interface {
	HandleEvent(connID string, evt *types.Event)
	HandleDisconnect(connID string)
	HandleTimerExpiry(roomCode string, generation uint64)
	TickRooms(interval time.Duration)
}

type inboundEvent struct {
	connID string
	event  *types.Event
}

type timerExpiry struct {
	roomCode   string
	generation uint64
}

// Hub serializes every event source onto one goroutine: inbound client
// events, transport disconnects, countdown expirations and the periodic
// metrics tick. Producers enqueue; only the run loop touches the router.
type Hub struct {
	router          EventRouter
	metricsInterval time.Duration

	events      chan *inboundEvent
	disconnects chan string
	expirations chan timerExpiry

	shutdownCh chan struct{}
	doneCh     chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewHub creates a hub driving the given router.
func NewHub(router EventRouter, metricsInterval time.Duration) *Hub {
	return &Hub{
		router:          router,
		metricsInterval: metricsInterval,
		events:          make(chan *inboundEvent, eventQueueSize),
		disconnects:     make(chan string, disconnectQueueSize),
		expirations:     make(chan timerExpiry, expirationQueueSize),
		shutdownCh:      make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start launches the run loop. The lifecycle channels are recreated on
// every start so a stopped hub can be started again.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrAlreadyRunning
	}
	h.running = true
	h.shutdownCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go h.run(ctx, h.shutdownCh, h.doneCh)
	log.Printf("Hub started: metrics_interval=%s", h.metricsInterval)
	return nil
}

// Stop shuts the run loop down and waits for it to drain.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrNotRunning
	}
	h.running = false
	shutdownCh := h.shutdownCh
	doneCh := h.doneCh
	h.mu.Unlock()

	close(shutdownCh)

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		log.Printf("Hub stop timed out waiting for run loop")
	}
	return nil
}

// IsRunning reports whether the run loop is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Dispatch implements the transport event sink: it decodes one inbound
// frame and enqueues it for the run loop. A full queue sheds the event
// rather than stalling the connection's read pump.
func (h *Hub) Dispatch(connID string, data []byte) error {
	if !h.IsRunning() {
		return ErrNotRunning
	}

	var evt types.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return ErrInvalidEvent
	}
	if evt.Type == "" {
		return ErrInvalidEvent
	}

	select {
	case h.events <- &inboundEvent{connID: connID, event: &evt}:
		return nil
	default:
		log.Printf("Event queue full, dropping: type=%s conn=%s", evt.Type, connID)
		return ErrQueueFull
	}
}

// NotifyDisconnect implements the transport event sink. Disconnects
// drive participant cleanup, so the send blocks instead of shedding.
func (h *Hub) NotifyDisconnect(connID string) {
	h.mu.RLock()
	shutdownCh := h.shutdownCh
	h.mu.RUnlock()

	select {
	case h.disconnects <- connID:
	case <-shutdownCh:
	}
}

// TimerExpired hands a fired countdown to the run loop. Wired into the
// room registry as its expiry callback.
func (h *Hub) TimerExpired(roomCode string, generation uint64) {
	select {
	case h.expirations <- timerExpiry{roomCode: roomCode, generation: generation}:
	default:
		log.Printf("Expiration queue full, dropping: room=%s", roomCode)
	}
}

func (h *Hub) run(ctx context.Context, shutdownCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(h.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Hub stopping: context cancelled")
			return
		case <-shutdownCh:
			log.Printf("Hub stopping: shutdown requested")
			return
		case ev := <-h.events:
			h.router.HandleEvent(ev.connID, ev.event)
		case connID := <-h.disconnects:
			h.router.HandleDisconnect(connID)
		case exp := <-h.expirations:
			h.router.HandleTimerExpiry(exp.roomCode, exp.generation)
		case <-ticker.C:
			h.router.TickRooms(h.metricsInterval)
		}
	}
}
