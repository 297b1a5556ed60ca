package main

import "time"

// EventType names a world event recorded for stats and analytics
type EventType string

const (
	EventJoin          EventType = "join"
	EventLeave         EventType = "leave"
	EventDeath         EventType = "death"
	EventRevive        EventType = "revive"
	EventBlockPlaced   EventType = "block_placed"
	EventRoomConverted EventType = "room_converted"
	EventQueueTimeout  EventType = "queue_timeout"
	EventInteraction   EventType = "interaction"
	EventMealEaten     EventType = "meal_eaten"
)

// Event is one thing that happened in the world
type Event struct {
	Type     EventType
	PlayerID string
	AuthID   int64  // account id, 0 for guests
	Detail   string // cause, room type, interaction type
	Value    float64
	At       time.Time
}

// EventSink consumes drained world events off the simulation lock
type EventSink interface {
	Record(e Event)
}

func (w *World) record(e Event) {
	if e.AuthID == 0 {
		if p := w.players[e.PlayerID]; p != nil {
			e.AuthID = p.AuthID
		}
	}
	w.events = append(w.events, e)
}
