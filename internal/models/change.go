package models

import "time"

// EventType is the kind of row change carried by a ChangeEvent.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent notifies subscribers that a row changed. It carries no row
// payload; subscribers re-read what they need.
type ChangeEvent struct {
	ID       string    `json:"id"`
	Table    string    `json:"table"`
	Type     EventType `json:"type"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// EventFilter selects event types. An empty filter matches everything.
type EventFilter []EventType

// Matches reports whether t passes the filter.
func (f EventFilter) Matches(t EventType) bool {
	if len(f) == 0 {
		return true
	}
	for _, want := range f {
		if want == t {
			return true
		}
	}
	return false
}
