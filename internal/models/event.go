package models

import "time"

// DraftEvent is an unconfirmed event held locally until the user approves it.
// The JSON shape matches what the resolver produces and what clients submit:
// time and location are null when the utterance did not mention them.
// EventID is set when the draft was started from an existing remote event,
// in which case committing it performs an update instead of a create.
type DraftEvent struct {
	EventID  string  `json:"eventId,omitempty"`
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Time     *string `json:"time"`
	Location *string `json:"location"`
}

// IsUpdate reports whether committing this draft targets an existing remote event.
func (d DraftEvent) IsUpdate() bool {
	return d.EventID != ""
}

// RemoteEvent is an event persisted in the external calendar store.
// This is an internal representation, independent of the provider's wire format.
type RemoteEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"allDay"`
	Location string    `json:"location,omitempty"`
}

// EventRequest is the provider-neutral payload for creating or updating a
// remote event. The calendar client converts it to the provider's own shape.
type EventRequest struct {
	Title       string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}

// DayView is the ordered set of remote events falling within one calendar day,
// ascending by start time. It is always rebuilt from a fresh query, never
// patched in place.
type DayView []RemoteEvent
