package session

import (
	"log"
	"sync"

	"quizlive-service/internal/domain"
)

// Sink is one participant's connection handle on the bidirectional channel.
// Send must not block the caller; slow consumers are the sink's problem.
type Sink interface {
	Send(ev domain.Event) error
}

// EventSink receives every event a session publishes. The room fans out to
// its members; the push-only hub forwards ranking-bearing events to its
// subscribers. The session never branches on channel type.
type EventSink interface {
	Deliver(quizID string, ev domain.Event)
}

type member struct {
	name string
	sink Sink
}

// Room tracks the connected participants of one session. A user holds at
// most one sink at a time; rejoining replaces the prior handle.
type Room struct {
	quizID string

	mu      sync.RWMutex
	members map[string]*member
}

func NewRoom(quizID string) *Room {
	return &Room{quizID: quizID, members: make(map[string]*member)}
}

// Add registers or replaces the sink for userID and reports whether the user
// was already a member.
func (r *Room) Add(userID, name string, sink Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, rejoined := r.members[userID]
	r.members[userID] = &member{name: name, sink: sink}
	return rejoined
}

// Remove drops userID from the room. Removing an unknown user is a no-op.
// It reports whether the room is empty afterwards.
func (r *Room) Remove(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, userID)
	return len(r.members) == 0
}

// SinkOf returns the sink currently registered for userID.
func (r *Room) SinkOf(userID string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[userID]
	if !ok {
		return nil, false
	}
	return m.sink, true
}

// Has reports whether userID is currently a member.
func (r *Room) Has(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[userID]
	return ok
}

// Len returns the current member count.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Participants returns the membership snapshot for room-participants pushes.
func (r *Room) Participants() []domain.ParticipantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ParticipantInfo, 0, len(r.members))
	for id, m := range r.members {
		out = append(out, domain.ParticipantInfo{UserID: id, Username: m.name})
	}
	return out
}

// Send delivers an event to one member only (answer-result goes to the
// submitter, never the room).
func (r *Room) Send(userID string, ev domain.Event) {
	r.mu.RLock()
	m, ok := r.members[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := m.sink.Send(ev); err != nil {
		log.Printf("room %s: unicast %s to %s failed: %v", r.quizID, ev.Name, userID, err)
	}
}

// Deliver broadcasts an event to every member. A failing sink is logged and
// skipped; one dead connection must not block the rest.
func (r *Room) Deliver(_ string, ev domain.Event) {
	r.mu.RLock()
	targets := make([]*member, 0, len(r.members))
	ids := make([]string, 0, len(r.members))
	for id, m := range r.members {
		targets = append(targets, m)
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for i, m := range targets {
		if err := m.sink.Send(ev); err != nil {
			log.Printf("room %s: broadcast %s to %s failed: %v", r.quizID, ev.Name, ids[i], err)
		}
	}
}
