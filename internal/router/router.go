package router

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"focushub/internal/config"
	"focushub/internal/room"
	"focushub/internal/session"
	"focushub/pkg/types"
)

// Broadcaster is the outbound half of the transport as consumed by the
// router: targeted delivery, room multicast and multicast group
// membership. Implemented by the websocket registry; declared here to
// keep the dependency pointing inward.
type Broadcaster interface {
	EmitTo(connID, eventType string, payload interface{})
	EmitToRoom(roomCode, eventType string, payload interface{}, excludeID string)
	JoinRoom(connID, roomCode string)
	LeaveRoom(connID, roomCode string)
}

// Router dispatches inbound client events to room mutations and
// multicasts the results. Faults follow the best-effort model: malformed
// input, stale references and non-host timer control are logged no-ops,
// never surfaced to the client as failures.
type Router struct {
	rooms       *room.Registry
	sessions    *session.Manager
	broadcaster Broadcaster
	cfg         *config.SessionConfig

	mu            sync.Mutex
	frameLimiters map[string]*rate.Limiter
}

// NewRouter creates an event router.
func NewRouter(rooms *room.Registry, sessions *session.Manager, broadcaster Broadcaster, cfg *config.SessionConfig) *Router {
	return &Router{
		rooms:         rooms,
		sessions:      sessions,
		broadcaster:   broadcaster,
		cfg:           cfg,
		frameLimiters: make(map[string]*rate.Limiter),
	}
}

// HandleEvent routes one inbound event from a connection.
func (r *Router) HandleEvent(connID string, evt *types.Event) {
	switch evt.Type {
	case types.EventRoomJoin:
		r.handleJoin(connID, evt.Payload)
	case types.EventRoomLeave:
		r.handleLeave(connID)
	case types.EventTimerStart:
		r.handleTimerStart(connID, evt.Payload)
	case types.EventTimerStop:
		r.handleTimerStop(connID)
	case types.EventUserDistracted:
		r.handleStatusChange(connID, true)
	case types.EventUserFocused:
		r.handleStatusChange(connID, false)
	case types.EventBlendShapes:
		r.handleBlendShapes(connID, evt.Payload)
	default:
		log.Printf("Unknown event type: type=%s conn=%s", evt.Type, connID)
	}
}

// HandleDisconnect treats a transport disconnect as an implicit leave.
func (r *Router) HandleDisconnect(connID string) {
	r.dropFrameLimiter(connID)

	entry, bound := r.sessions.Lookup(connID)
	if !bound {
		return
	}
	r.leaveRoom(connID, entry.RoomCode)
}

// HandleTimerExpiry applies a fired countdown completion. The room
// decides whether the generation is still current; stale firings (a stop
// or newer start superseded them, or the room is gone) are discarded.
func (r *Router) HandleTimerExpiry(roomCode string, generation uint64) {
	rm, exists := r.rooms.Get(roomCode)
	if !exists {
		return
	}
	if !rm.CompleteTimer(generation) {
		return
	}

	r.broadcaster.EmitToRoom(roomCode, types.EventTimerEnded, nil, "")
	log.Printf("Timer ended: room=%s", roomCode)
}

// TickRooms runs one metrics pass: every room accrues interval seconds
// of score and rebroadcasts its state. A failure in one room is isolated
// so siblings and future ticks are unaffected.
func (r *Router) TickRooms(interval time.Duration) {
	seconds := interval.Seconds()
	for _, rm := range r.rooms.Rooms() {
		r.tickRoom(rm, seconds)
	}
}

func (r *Router) tickRoom(rm *room.Room, seconds float64) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Metrics tick panic: room=%s err=%v", rm.Code(), rec)
		}
	}()

	_, dps := rm.TickAndDistribute(seconds)

	code := rm.Code()
	r.broadcaster.EmitToRoom(code, types.EventRoomState, rm.Snapshot(time.Now()), "")
	r.broadcaster.EmitToRoom(code, types.EventGroupScoreUpdated, types.GroupScorePayload{GroupScore: rm.GroupScore()}, "")
	r.broadcaster.EmitToRoom(code, types.EventGroupDPSUpdated, types.GroupDPSPayload{GroupDPS: dps}, "")
}

func (r *Router) handleJoin(connID string, payload json.RawMessage) {
	var join types.RoomJoinPayload
	if err := json.Unmarshal(payload, &join); err != nil {
		log.Printf("Malformed join payload: conn=%s err=%v", connID, err)
		return
	}
	if !types.IsValidRoomCode(join.RoomCode) || !types.IsValidUsername(join.Username) {
		log.Printf("Invalid join parameters: conn=%s room=%q", connID, join.RoomCode)
		return
	}

	// A connection can only live in one room; a rejoin is a room switch.
	if entry, bound := r.sessions.Lookup(connID); bound {
		r.leaveRoom(connID, entry.RoomCode)
	}

	rm := r.rooms.GetOrCreate(join.RoomCode)
	now := time.Now()
	if err := rm.AddParticipant(connID, join.Username, join.AvatarURL, now); err != nil {
		log.Printf("Join rejected: conn=%s room=%s err=%v", connID, join.RoomCode, err)
		if rm.Empty() {
			r.rooms.Delete(join.RoomCode)
		}
		return
	}

	r.sessions.Bind(connID, join.RoomCode, join.Username)
	r.broadcaster.JoinRoom(connID, join.RoomCode)

	// The joiner gets the current shared state directly; peers learn
	// about the arrival.
	r.broadcaster.EmitTo(connID, types.EventRoomState, rm.Snapshot(now))
	r.broadcaster.EmitToRoom(join.RoomCode, types.EventUserJoined, types.UserJoinedPayload{
		Username:  join.Username,
		AvatarURL: join.AvatarURL,
	}, connID)

	log.Printf("Joined room: user=%s room=%s participants=%d", join.Username, join.RoomCode, rm.Size())
}

func (r *Router) handleLeave(connID string) {
	// Resolved through the session table; the client's room code echo is
	// not trusted.
	entry, bound := r.sessions.Lookup(connID)
	if !bound {
		return
	}
	r.leaveRoom(connID, entry.RoomCode)
}

// leaveRoom finalizes a departure: metrics to the leaver, user:left to
// the room, registry cleanup when the room empties.
func (r *Router) leaveRoom(connID, roomCode string) {
	r.sessions.Unbind(connID)

	rm, exists := r.rooms.Get(roomCode)
	if !exists {
		r.broadcaster.LeaveRoom(connID, roomCode)
		return
	}

	metrics, err := rm.RemoveParticipant(connID, time.Now())
	if err != nil {
		r.broadcaster.LeaveRoom(connID, roomCode)
		return
	}

	r.broadcaster.EmitTo(connID, types.EventUserMetrics, types.UserMetricsPayload{
		Username:          metrics.Username,
		FocusedMs:         metrics.FocusedMs,
		DistractedMs:      metrics.DistractedMs,
		FocusPercentage:   metrics.FocusPercentage,
		Score:             metrics.Score,
		ConfusionEvents:   metrics.ConfusionEvents,
		SessionDurationMs: metrics.SessionDurationMs,
	})
	r.broadcaster.LeaveRoom(connID, roomCode)
	r.broadcaster.EmitToRoom(roomCode, types.EventUserLeft, types.UserLeftPayload{Username: metrics.Username}, connID)

	log.Printf("Left room: user=%s room=%s", metrics.Username, roomCode)

	if rm.Empty() {
		r.rooms.Delete(roomCode)
	}
}

func (r *Router) handleTimerStart(connID string, payload json.RawMessage) {
	entry, bound := r.sessions.Lookup(connID)
	if !bound {
		return
	}
	rm, exists := r.rooms.Get(entry.RoomCode)
	if !exists {
		return
	}

	var start types.TimerStartPayload
	if len(payload) > 0 {
		// A malformed payload degrades to the default phase.
		_ = json.Unmarshal(payload, &start)
	}
	phase := types.NormalizePhase(start.Phase)

	duration := r.cfg.FocusDuration
	if phase == types.PhaseBreak {
		duration = r.cfg.BreakDuration
	}

	started, err := rm.StartTimer(connID, phase, duration, time.Now())
	if err != nil {
		log.Printf("Timer start ignored: conn=%s room=%s err=%v", connID, entry.RoomCode, err)
		return
	}

	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventTimerStarted, started, "")
	log.Printf("Timer started: room=%s phase=%s duration=%dm", entry.RoomCode, phase, started.DurationMins)
}

func (r *Router) handleTimerStop(connID string) {
	entry, bound := r.sessions.Lookup(connID)
	if !bound {
		return
	}
	rm, exists := r.rooms.Get(entry.RoomCode)
	if !exists {
		return
	}

	if err := rm.StopTimer(connID); err != nil {
		log.Printf("Timer stop ignored: conn=%s room=%s err=%v", connID, entry.RoomCode, err)
		return
	}

	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventTimerStopped, nil, "")
	log.Printf("Timer stopped: room=%s", entry.RoomCode)
}

func (r *Router) handleStatusChange(connID string, distracted bool) {
	entry, bound := r.sessions.Lookup(connID)
	if !bound {
		return
	}
	rm, exists := r.rooms.Get(entry.RoomCode)
	if !exists {
		return
	}

	if _, err := rm.SetDistracted(connID, distracted, time.Now()); err != nil {
		return
	}

	// Repeated toggles still rebroadcast; interval accounting inside the
	// room is idempotent either way.
	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventUserStatusChanged, types.UserStatusPayload{
		Username:     entry.Username,
		IsDistracted: distracted,
	}, "")

	// Zero-elapsed tick: the rate changed, so score and rate are
	// recomputed and re-emitted without accruing time.
	_, dps := rm.TickAndDistribute(0)
	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventGroupScoreUpdated, types.GroupScorePayload{GroupScore: rm.GroupScore()}, "")
	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventGroupDPSUpdated, types.GroupDPSPayload{GroupDPS: dps}, "")
}

func (r *Router) handleBlendShapes(connID string, payload json.RawMessage) {
	entry, bound := r.sessions.Lookup(connID)
	if !bound {
		return
	}

	// Face trackers emit at animation frame rates; excess frames are
	// dropped before any fan-out work happens.
	if !r.frameLimiter(connID).Allow() {
		return
	}

	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventBlendShapesUpdate, types.BlendShapesUpdatePayload{
		Username:    entry.Username,
		BlendShapes: payload,
	}, connID)

	rm, exists := r.rooms.Get(entry.RoomCode)
	if !exists {
		return
	}

	var frame map[string]interface{}
	if err := json.Unmarshal(payload, &frame); err != nil {
		// Relay is pass-through; only detection needs a parsable frame.
		return
	}

	triggered, count, err := rm.ApplyExpressionFrame(connID, frame)
	if err != nil || !triggered {
		return
	}

	r.broadcaster.EmitToRoom(entry.RoomCode, types.EventUserConfused, types.UserConfusedPayload{
		Username:        entry.Username,
		ConfusionEvents: count,
	}, "")
}

// frameLimiter returns the per-connection expression-frame limiter,
// creating it on first use.
func (r *Router) frameLimiter(connID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, exists := r.frameLimiters[connID]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.FrameRateLimit), r.cfg.FrameRateBurst)
		r.frameLimiters[connID] = limiter
	}
	return limiter
}

func (r *Router) dropFrameLimiter(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.frameLimiters, connID)
}
