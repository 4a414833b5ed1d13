// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityRecordedQueue is the durable queue activity events are routed to.
const ActivityRecordedQueue = "activity.recorded"

// ActivityRecordedEvent is published after an activity counter was
// incremented. Count is the counter value after the increment.
type ActivityRecordedEvent struct {
	UserID     int64  `json:"user_id"`
	NoteID     *int64 `json:"note_id,omitempty"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	Count      int    `json:"count"`
	RecordedAt string `json:"recorded_at"`
}
