package room

import (
	"time"
)

// Participant is the per-connection state inside a room. Exactly one
// focus/distraction interval is open at any time; stateSince marks its
// start and the distracted flag names its kind. All fields are owned by
// the enclosing Room and must only be touched under its lock.
type Participant struct {
	ConnectionID string
	Username     string
	AvatarURL    string

	distracted   bool
	stateSince   time.Time
	joinedAt     time.Time
	focusedMs    int64
	distractedMs int64
	score        float64

	confused        bool
	confusionEvents int
}

func newParticipant(connID, username, avatarURL string, now time.Time) *Participant {
	return &Participant{
		ConnectionID: connID,
		Username:     username,
		AvatarURL:    avatarURL,
		stateSince:   now,
		joinedAt:     now,
	}
}

// closeInterval folds the open interval into the accumulator for the
// current state and opens a fresh interval at now. The invariant
// focusedMs + distractedMs + (now - stateSince) == session duration
// holds before and after.
func (p *Participant) closeInterval(now time.Time) {
	elapsed := now.Sub(p.stateSince).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	if p.distracted {
		p.distractedMs += elapsed
	} else {
		p.focusedMs += elapsed
	}
	p.stateSince = now
}

// setDistracted flips the focus state, closing out the previous interval.
// Returns false when the participant is already in the requested state;
// repeated identical calls never double-count an interval.
func (p *Participant) setDistracted(distracted bool, now time.Time) bool {
	if p.distracted == distracted {
		return false
	}
	p.closeInterval(now)
	p.distracted = distracted
	return true
}

// focusPercentage is the share of closed interval time spent focused.
// Zero when no time has been accumulated yet.
func (p *Participant) focusPercentage() float64 {
	total := p.focusedMs + p.distractedMs
	if total == 0 {
		return 0
	}
	return float64(p.focusedMs) / float64(total) * 100
}
