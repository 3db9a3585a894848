package graphite

import "graphout/internal/event"

// ShouldForward decides whether an event produces metric lines.
// Params: ev candidate event; wantType required type ("" accepts any); wantTags tags that must all be present.
// Returns: true when the event passes both type and tag checks.
func ShouldForward(ev event.Event, wantType string, wantTags []string) bool {
	if wantType != "" && ev.Type != wantType {
		return false
	}
	for _, tag := range wantTags {
		if !ev.HasTag(tag) {
			return false
		}
	}
	return true
}
