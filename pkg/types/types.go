package types

import (
	"encoding/json"
)

// Client -> server event types. Names are colon-namespaced to stay
// compatible with the web client's event vocabulary.
const (
	EventRoomJoin       = "room:join"
	EventRoomLeave      = "room:leave"
	EventTimerStart     = "timer:start"
	EventTimerStop      = "timer:stop"
	EventUserDistracted = "user:distracted"
	EventUserFocused    = "user:focused"
	EventBlendShapes    = "avatar:blend-shapes"
)

// Server -> client event types.
const (
	EventRoomState         = "room:state"
	EventUserJoined        = "user:joined"
	EventUserLeft          = "user:left"
	EventUserStatusChanged = "user:status-changed"
	EventUserConfused      = "user:confused"
	EventUserMetrics       = "user:metrics"
	EventTimerStarted      = "timer:started"
	EventTimerStopped      = "timer:stopped"
	EventTimerEnded        = "timer:ended"
	EventGroupScoreUpdated = "group:score-updated"
	EventGroupDPSUpdated   = "group:dps-updated"
	EventBlendShapesUpdate = "avatar:blend-shapes-update"
)

// Timer phases shared by the room state machine and the wire format.
const (
	PhaseFocus = "focus"
	PhaseBreak = "break"
)

// Event is the wire envelope for every message in both directions.
// Payload stays raw until the dispatcher knows which struct to decode into.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomJoinPayload is sent by a client to enter a room. AvatarURL is an
// opaque reference the server relays but never interprets.
type RoomJoinPayload struct {
	RoomCode  string `json:"roomCode"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// RoomLeavePayload is sent by a client to leave a room explicitly.
// Disconnects take the same path without a payload.
type RoomLeavePayload struct {
	RoomCode string `json:"roomCode"`
}

// TimerStartPayload carries the requested phase; the duration is chosen
// server-side from configuration.
type TimerStartPayload struct {
	Phase string `json:"phase"`
}

// ParticipantState is the per-participant slice of a room state broadcast.
type ParticipantState struct {
	Username        string  `json:"username"`
	AvatarURL       string  `json:"avatarUrl,omitempty"`
	IsDistracted    bool    `json:"isDistracted"`
	Confused        bool    `json:"confused"`
	Score           float64 `json:"score"`
	ConfusionEvents int     `json:"confusionEvents"`
}

// RoomStatePayload is the full shared-state snapshot pushed to clients on
// join and on every metrics tick. EndTime is unix milliseconds and nil
// while no countdown is active. ServerTime lets clients correct clock skew.
type RoomStatePayload struct {
	Participants    []ParticipantState `json:"participants"`
	TimerRunning    bool               `json:"timerRunning"`
	EndTime         *int64             `json:"endTime"`
	Phase           string             `json:"phase"`
	GroupScore      float64            `json:"groupScore"`
	GroupDPS        float64            `json:"groupDps"`
	DistractedCount int                `json:"distractedCount"`
	ServerTime      int64              `json:"serverTime"`
}

// UserJoinedPayload notifies existing room members about a new arrival.
type UserJoinedPayload struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UserLeftPayload notifies remaining room members about a departure.
type UserLeftPayload struct {
	Username string `json:"username"`
}

// UserStatusPayload announces a focus/distraction toggle.
type UserStatusPayload struct {
	Username     string `json:"username"`
	IsDistracted bool   `json:"isDistracted"`
}

// UserConfusedPayload announces a confusion detection hit.
type UserConfusedPayload struct {
	Username        string `json:"username"`
	ConfusionEvents int    `json:"confusionEvents"`
}

// UserMetricsPayload is the finalized snapshot delivered to a participant
// when they leave a room.
type UserMetricsPayload struct {
	Username          string  `json:"username"`
	FocusedMs         int64   `json:"focusedMs"`
	DistractedMs      int64   `json:"distractedMs"`
	FocusPercentage   float64 `json:"focusPercentage"`
	Score             float64 `json:"score"`
	ConfusionEvents   int     `json:"confusionEvents"`
	SessionDurationMs int64   `json:"sessionDurationMs"`
}

// TimerStartedPayload broadcasts a newly started countdown. EndTime is
// unix milliseconds.
type TimerStartedPayload struct {
	EndTime      int64  `json:"endTime"`
	Phase        string `json:"phase"`
	DurationMins int    `json:"durationMins"`
}

// GroupScorePayload broadcasts the accrued group score.
type GroupScorePayload struct {
	GroupScore float64 `json:"groupScore"`
}

// GroupDPSPayload broadcasts the current group accrual rate.
type GroupDPSPayload struct {
	GroupDPS float64 `json:"groupDps"`
}

// BlendShapesUpdatePayload relays a raw expression frame to room peers.
// The frame is passed through untouched.
type BlendShapesUpdatePayload struct {
	Username    string          `json:"username"`
	BlendShapes json.RawMessage `json:"blendShapes"`
}

// NewEvent builds an envelope, marshaling the payload. A nil payload
// produces an envelope with no payload field (timer:stopped, timer:ended).
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	evt := &Event{Type: eventType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		evt.Payload = data
	}
	return evt, nil
}
