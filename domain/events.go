package domain

import (
	"sync/atomic"
	"time"
)

// Broadcast event kinds, as seen on the wire by connected clients.
const (
	TaskAdded   = "taskAdded"
	TaskUpdated = "taskUpdated"
	TaskDeleted = "taskDeleted"
)

// Event is the tagged payload fanned out to connected clients after a
// mutation commits. Task is set for taskAdded; ID and Category carry the
// smaller update/delete payloads. Events are transient and never persisted.
type Event struct {
	Kind     string `json:"kind"`
	Task     *Task  `json:"task,omitempty"`
	ID       string `json:"id,omitempty"`
	Category string `json:"category,omitempty"`
	Time     int64  `json:"time"`
}

// NewTaskAdded announces a freshly created task, identifier included.
func NewTaskAdded(t Task) Event {
	return Event{Kind: TaskAdded, Task: &t, Time: nextTimestamp()}
}

// NewTaskUpdated announces a committed category change.
func NewTaskUpdated(id, category string) Event {
	return Event{Kind: TaskUpdated, ID: id, Category: category, Time: nextTimestamp()}
}

// NewTaskDeleted announces a committed removal.
func NewTaskDeleted(id string) Event {
	return Event{Kind: TaskDeleted, ID: id, Time: nextTimestamp()}
}

var lastTimestamp int64

// nextTimestamp returns a strictly increasing nanosecond stamp so that
// subscribers can observe emit order even when events land in the same tick.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}
