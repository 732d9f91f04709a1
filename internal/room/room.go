package room

import (
	"math"
	"sync"
	"time"

	"focushub/pkg/types"
)

// The penalty cap keeps the group earning at least 5% of the base rate no
// matter how many participants are distracted, so a session never stalls
// completely.
const maxDistractionPenalty = 0.95

// Settings are the scoring constants shared by every room, loaded once
// from configuration.
type Settings struct {
	BaseRatePerSecond    float64
	PenaltyPerDistracted float64
}

// DepartureMetrics is the finalized snapshot returned when a participant
// is removed, with the open interval closed out at removal time.
type DepartureMetrics struct {
	Username          string
	FocusedMs         int64
	DistractedMs      int64
	FocusPercentage   float64
	Score             float64
	ConfusionEvents   int
	SessionDurationMs int64
}

// Room aggregates the participants of one focus session: presence, focus
// intervals, the shared score and the countdown timer. Every mutation
// and read goes through the room mutex; the hub loop additionally
// serializes all event sources, so the lock is uncontended in practice.
type Room struct {
	code     string
	settings Settings

	mu           sync.Mutex
	participants map[string]*Participant
	joinOrder    []string
	hostID       string
	groupScore   float64

	timerPhase  string
	timerEnd    time.Time // zero while no countdown is active
	timerGen    uint64
	timerHandle *time.Timer
	expire      func(code string, generation uint64)
}

// newRoom creates an empty room. expire is invoked from a timer goroutine
// when a scheduled countdown elapses; it must hand off to a serialized
// event loop rather than mutate the room directly.
func newRoom(code string, settings Settings, expire func(code string, generation uint64)) *Room {
	return &Room{
		code:         code,
		settings:     settings,
		participants: make(map[string]*Participant),
		timerPhase:   types.PhaseFocus,
		expire:       expire,
	}
}

// Code returns the immutable room code.
func (r *Room) Code() string {
	return r.code
}

// AddParticipant creates a participant in the focused state. The first
// participant of an empty room becomes host. Broadcasting is the
// caller's responsibility.
func (r *Room) AddParticipant(connID, username, avatarURL string, now time.Time) error {
	if username == "" {
		return ErrEmptyUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[connID]; exists {
		return ErrAlreadyJoined
	}

	r.participants[connID] = newParticipant(connID, username, avatarURL, now)
	r.joinOrder = append(r.joinOrder, connID)

	if r.hostID == "" {
		r.hostID = connID
	}
	return nil
}

// RemoveParticipant finalizes and removes a participant, returning their
// departure snapshot. When the departing connection was host, the
// longest-joined remaining participant inherits the role.
func (r *Room) RemoveParticipant(connID string, now time.Time) (*DepartureMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[connID]
	if !exists {
		return nil, ErrParticipantNotFound
	}

	p.closeInterval(now)
	metrics := &DepartureMetrics{
		Username:          p.Username,
		FocusedMs:         p.focusedMs,
		DistractedMs:      p.distractedMs,
		FocusPercentage:   p.focusPercentage(),
		Score:             roundScore(p.score),
		ConfusionEvents:   p.confusionEvents,
		SessionDurationMs: now.Sub(p.joinedAt).Milliseconds(),
	}

	delete(r.participants, connID)
	for i, id := range r.joinOrder {
		if id == connID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	if r.hostID == connID {
		if len(r.joinOrder) > 0 {
			r.hostID = r.joinOrder[0]
		} else {
			r.hostID = ""
		}
	}

	return metrics, nil
}

// SetDistracted flips a participant's focus state. The returned flag is
// false when the call was a repeat of the current state; interval
// accounting happens only on actual transitions.
func (r *Room) SetDistracted(connID string, distracted bool, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[connID]
	if !exists {
		return false, ErrParticipantNotFound
	}
	return p.setDistracted(distracted, now), nil
}

// ApplyExpressionFrame runs confusion detection on one inbound frame.
// A hit marks the participant confused for the rest of the session and
// increments their event counter; the flag is never auto-cleared. The
// returned count is the total after this frame.
func (r *Room) ApplyExpressionFrame(connID string, frame map[string]interface{}) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[connID]
	if !exists {
		return false, 0, ErrParticipantNotFound
	}

	if !DetectConfusion(frame) {
		return false, p.confusionEvents, nil
	}

	p.confused = true
	p.confusionEvents++
	return true, p.confusionEvents, nil
}

// Empty reports whether the room has no participants left.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants) == 0
}

// Size returns the current participant count.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// HostID returns the connection id of the current host, or "" for an
// empty room.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// DistractedCount returns the number of currently distracted participants.
func (r *Room) DistractedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.distractedCountLocked()
}

func (r *Room) distractedCountLocked() int {
	count := 0
	for _, p := range r.participants {
		if p.distracted {
			count++
		}
	}
	return count
}

// GroupDPS computes the shared score accrual rate: the base rate reduced
// by a per-distracted-participant penalty, floored at 5% of base.
func (r *Room) GroupDPS() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groupDPSLocked()
}

func (r *Room) groupDPSLocked() float64 {
	penalty := r.settings.PenaltyPerDistracted * float64(r.distractedCountLocked())
	if penalty > maxDistractionPenalty {
		penalty = maxDistractionPenalty
	}
	return r.settings.BaseRatePerSecond * (1 - penalty)
}

// TickAndDistribute accrues seconds worth of points at the current group
// rate, splitting them equally among focused participants. With nobody
// focused the elapsed points are dropped, not banked. Returns the group
// score and rate after the tick for rebroadcast; a zero-second tick is a
// pure recompute.
func (r *Room) TickAndDistribute(seconds float64) (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dps := r.groupDPSLocked()
	points := dps * seconds

	focused := len(r.participants) - r.distractedCountLocked()
	if points > 0 && focused > 0 {
		perParticipant := points / float64(focused)
		for _, p := range r.participants {
			if !p.distracted {
				p.score += perParticipant
			}
		}
		r.groupScore += points
	}

	return r.groupScore, dps
}

// StartTimer begins a countdown on behalf of connID, which must be the
// room host. Any previously scheduled completion is superseded: its timer
// handle is stopped and its generation invalidated, so a late firing
// discards itself in CompleteTimer.
func (r *Room) StartTimer(connID, phase string, duration time.Duration, now time.Time) (*types.TimerStartedPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostID {
		return nil, ErrNotHost
	}

	r.cancelTimerLocked()
	r.timerGen++
	generation := r.timerGen

	end := now.Add(duration)
	r.timerEnd = end
	r.timerPhase = phase

	if r.expire != nil {
		r.timerHandle = time.AfterFunc(duration, func() {
			r.expire(r.code, generation)
		})
	}

	return &types.TimerStartedPayload{
		EndTime:      end.UnixMilli(),
		Phase:        phase,
		DurationMins: int(duration.Minutes()),
	}, nil
}

// StopTimer clears an active countdown on behalf of connID, which must be
// the room host. Stopping an idle timer is a harmless no-op broadcastwise.
func (r *Room) StopTimer(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostID {
		return ErrNotHost
	}

	r.cancelTimerLocked()
	r.timerGen++
	r.timerEnd = time.Time{}
	return nil
}

// CompleteTimer is called when a scheduled completion fires. It takes
// effect only if the generation it was scheduled under is still current
// and a countdown is still active; otherwise the firing is stale (a stop
// or newer start superseded it) and is discarded.
func (r *Room) CompleteTimer(generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if generation != r.timerGen || r.timerEnd.IsZero() {
		return false
	}

	r.timerEnd = time.Time{}
	r.timerHandle = nil
	return true
}

func (r *Room) cancelTimerLocked() {
	if r.timerHandle != nil {
		r.timerHandle.Stop()
		r.timerHandle = nil
	}
}

// shutdown invalidates and stops any scheduled completion. Called by the
// registry when the room is destroyed so no timer goroutine outlives it.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimerLocked()
	r.timerGen++
	r.timerEnd = time.Time{}
}

// Snapshot builds the full room state payload broadcast to clients.
// Participants appear in join order for stable client rendering.
func (r *Room) Snapshot(now time.Time) *types.RoomStatePayload {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]types.ParticipantState, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		p, exists := r.participants[id]
		if !exists {
			continue
		}
		participants = append(participants, types.ParticipantState{
			Username:        p.Username,
			AvatarURL:       p.AvatarURL,
			IsDistracted:    p.distracted,
			Confused:        p.confused,
			Score:           roundScore(p.score),
			ConfusionEvents: p.confusionEvents,
		})
	}

	snapshot := &types.RoomStatePayload{
		Participants:    participants,
		TimerRunning:    !r.timerEnd.IsZero() && r.timerEnd.After(now),
		Phase:           r.timerPhase,
		GroupScore:      roundScore(r.groupScore),
		GroupDPS:        r.groupDPSLocked(),
		DistractedCount: r.distractedCountLocked(),
		ServerTime:      now.UnixMilli(),
	}
	if !r.timerEnd.IsZero() {
		end := r.timerEnd.UnixMilli()
		snapshot.EndTime = &end
	}
	return snapshot
}

// GroupScore returns the rounded group score for broadcast payloads.
func (r *Room) GroupScore() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return roundScore(r.groupScore)
}

// roundScore rounds to one decimal for wire output; internal accumulation
// stays unrounded so monotonicity is never lost to truncation.
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
