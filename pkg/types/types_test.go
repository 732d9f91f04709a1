package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestIsValidRoomCode(t *testing.T) {
	cases := []struct {
		name  string
		code  string
		valid bool
	}{
		{"simple", "study-room", true},
		{"alphanumeric", "Room42", true},
		{"underscore", "deep_work", true},
		{"empty", "", false},
		{"spaces", "my room", false},
		{"special chars", "room!", false},
		{"too long", strings.Repeat("a", 65), false},
		{"max length", strings.Repeat("a", 64), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidRoomCode(tc.code); got != tc.valid {
				t.Errorf("IsValidRoomCode(%q) = %v, want %v", tc.code, got, tc.valid)
			}
		})
	}
}

func TestIsValidUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		valid    bool
	}{
		{"simple", "alice", true},
		{"with spaces", "Alice B", true},
		{"unicode", "アリス", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"too long", strings.Repeat("a", 51), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidUsername(tc.username); got != tc.valid {
				t.Errorf("IsValidUsername(%q) = %v, want %v", tc.username, got, tc.valid)
			}
		})
	}
}

func TestNormalizePhase(t *testing.T) {
	if got := NormalizePhase(PhaseBreak); got != PhaseBreak {
		t.Errorf("NormalizePhase(break) = %q, want break", got)
	}
	if got := NormalizePhase(""); got != PhaseFocus {
		t.Errorf("NormalizePhase(\"\") = %q, want focus", got)
	}
	if got := NormalizePhase("lunch"); got != PhaseFocus {
		t.Errorf("NormalizePhase(lunch) = %q, want focus", got)
	}
}

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent(EventUserLeft, UserLeftPayload{Username: "alice"})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	if evt.Type != EventUserLeft {
		t.Errorf("event type = %q, want %q", evt.Type, EventUserLeft)
	}

	var payload UserLeftPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if payload.Username != "alice" {
		t.Errorf("payload username = %q, want alice", payload.Username)
	}
}

func TestNewEventNilPayload(t *testing.T) {
	evt, err := NewEvent(EventTimerEnded, nil)
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	if evt.Payload != nil {
		t.Errorf("expected nil payload, got %s", evt.Payload)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("envelope marshal failed: %v", err)
	}
	if strings.Contains(string(data), "payload") {
		t.Errorf("nil payload should be omitted from envelope: %s", data)
	}
}

func TestEventEnvelopeDecode(t *testing.T) {
	raw := `{"type":"room:join","payload":{"roomCode":"abc","username":"bob","avatarUrl":"https://cdn/av.glb"}}`

	var evt Event
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("envelope decode failed: %v", err)
	}
	if evt.Type != EventRoomJoin {
		t.Errorf("type = %q, want %q", evt.Type, EventRoomJoin)
	}

	var join RoomJoinPayload
	if err := json.Unmarshal(evt.Payload, &join); err != nil {
		t.Fatalf("join payload decode failed: %v", err)
	}
	if join.RoomCode != "abc" || join.Username != "bob" {
		t.Errorf("unexpected join payload: %+v", join)
	}
}
