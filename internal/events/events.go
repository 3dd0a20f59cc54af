// Package events queues realtime notifications and other side effects so that
// they run after the request's write has committed and never fail it.
package events

import (
	"context"
	"fmt"
)

// Event is a realtime notification. An empty Room means broadcast.
type Event struct {
	Name    string
	Room    string
	Payload any
}

// Broadcast addresses every connected client
func Broadcast(name string, payload any) Event {
	return Event{Name: name, Payload: payload}
}

// ToUser addresses the clients that joined a user's room
func ToUser(name string, userID uint64, payload any) Event {
	return Event{Name: name, Room: UserRoom(userID), Payload: payload}
}

// UserRoom names the per-user room
func UserRoom(userID uint64) string {
	return fmt.Sprintf("user-%d", userID)
}

// Publisher delivers events to connected clients
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Job is a deferred side effect such as sending mail
type Job func(ctx context.Context) error

// Dispatcher accepts side effects without blocking the caller
type Dispatcher interface {
	Emit(events ...Event)
	Submit(name string, job Job)
}

// FanOut addresses an event to a broadcast plus the rooms of the given users,
// skipping duplicate and empty user ids
func FanOut(name string, payload any, userIDs ...uint64) []Event {
	out := []Event{Broadcast(name, payload)}
	seen := make(map[uint64]bool, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, ToUser(name, id, payload))
	}
	return out
}
