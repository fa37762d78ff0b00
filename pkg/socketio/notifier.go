package socketio

import (
	"sync"

	"github.com/google/uuid"
)

// Events pushed to a user's room.
const (
	EventLessonContentReady = "lessonContentReady"
	EventProgressUpdated    = "progressUpdated"
	EventCertificateStatus  = "certificateStatus"
)

// Notifier pushes an event to every connected socket of a user.
type Notifier interface {
	Notify(userID uuid.UUID, event string, payload any)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(uuid.UUID, string, any) {}

// Notification is one recorded event.
type Notification struct {
	UserID  uuid.UUID
	Event   string
	Payload any
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(userID uuid.UUID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Notification{UserID: userID, Event: event, Payload: payload})
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.events))
	copy(out, r.events)
	return out
}
