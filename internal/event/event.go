// Package event defines the structured event the matcher engine classifies
// (spec §3.2): a type, a creation timestamp, and an arbitrary JSON-shaped
// payload. The engine never mutates an Event.
package event

import "github.com/danielsvitols/tornado/internal/value"

// Event is the unit the matcher engine classifies.
type Event struct {
	Type      string
	CreatedMs int64
	Payload   value.Value // must be a Map (or Null if absent)
}

// New builds an Event from a payload map.
func New(typ string, createdMs int64, payload map[string]value.Value) Event {
	return Event{Type: typ, CreatedMs: createdMs, Payload: value.Map(payload)}
}

// AsValue addresses the whole event as a Map value with synthetic keys
// "type", "created_ms", and "payload" (spec §3.2).
func (e Event) AsValue() value.Value {
	return value.Map(map[string]value.Value{
		"type":       value.String(e.Type),
		"created_ms": value.Int(e.CreatedMs),
		"payload":    e.Payload,
	})
}
