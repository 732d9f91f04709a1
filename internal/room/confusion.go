package room

import (
	"strings"
)

// Confusion detection scans expression frames for brow-family signals
// (browInnerUp, browDownLeft, ...). A furrowed or raised brow at or above
// the threshold counts as a confusion event.
const (
	confusionThreshold    = 0.45
	confusionSignalFamily = "brow"
)

// DetectConfusion reports whether any brow-family signal in the frame
// meets the confusion threshold. Non-numeric values are skipped, never
// fatal: frames come straight off the wire from face-tracking clients.
func DetectConfusion(frame map[string]interface{}) bool {
	for name, value := range frame {
		if !strings.Contains(strings.ToLower(name), confusionSignalFamily) {
			continue
		}
		intensity, ok := value.(float64)
		if ok && intensity >= confusionThreshold {
			return true
		}
	}
	return false
}
