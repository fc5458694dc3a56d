package domain

import (
	"fmt"
	"time"
)

// Presence timing. Signals refresh every HeartbeatInterval while a field
// holds focus and expire TTL after their own timestamp; live values are
// throttled to one broadcast per ValueThrottle per field.
const (
	PresenceHeartbeatInterval = 4 * time.Second
	PresenceTTL               = 5 * time.Second
	PresenceValueThrottle     = 100 * time.Millisecond
)

// PresenceSignal is an ephemeral "someone is editing this field" broadcast.
// Advisory only: it never blocks a write, is never persisted, and loss has
// no correctness impact on the ledger.
type PresenceSignal struct {
	SessionID string      `json:"sessionId"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	EntityID  string      `json:"entityId"`
	Date      time.Time   `json:"date"`
	Field     ServiceKind `json:"field"`
	Timestamp time.Time   `json:"timestamp"`
	Color     string      `json:"color"`
	Value     string      `json:"value,omitempty"`
	Cleared   bool        `json:"cleared,omitempty"`
}

// Expired reports whether the signal is stale at now, judged by the signal's
// own timestamp rather than receipt time.
func (s PresenceSignal) Expired(now time.Time) bool {
	return now.Sub(s.Timestamp) > PresenceTTL
}

// PresenceChannel is the broadcast channel key for one entity and date.
func PresenceChannel(entityID string, date time.Time) string {
	return fmt.Sprintf("presence:%s:%s", entityID, Day(date).Format("2006-01-02"))
}
