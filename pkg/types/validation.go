package types

import (
	"regexp"
	"strings"
)

// Compiled once at package initialization; validation runs on every join.
var roomCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const (
	maxRoomCodeLength = 64
	maxUsernameLength = 50
)

// IsValidRoomCode reports whether a room code is usable as a registry key
// and a multicast group name.
func IsValidRoomCode(code string) bool {
	if code == "" || len(code) > maxRoomCodeLength {
		return false
	}
	return roomCodeRegex.MatchString(code)
}

// IsValidUsername reports whether a display name is acceptable. Names are
// free-form but must contain something visible.
func IsValidUsername(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(name) <= maxUsernameLength
}

// IsValidPhase reports whether a timer phase is one of the known values.
func IsValidPhase(phase string) bool {
	return phase == PhaseFocus || phase == PhaseBreak
}

// NormalizePhase maps unknown or empty phases to the focus default, the
// behavior clients rely on when omitting the field.
func NormalizePhase(phase string) string {
	if IsValidPhase(phase) {
		return phase
	}
	return PhaseFocus
}
