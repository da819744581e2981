package session

import (
	"sync"

	"github.com/google/uuid"

	"quizlive-service/internal/domain"
)

// Hub is the push-only delivery channel: subscribers register by quiz ID and
// receive ranking updates until their connection closes. It outlives any one
// session, so clients may subscribe before a quiz goes live.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscriber is one push-only client. Events arrive on Events() until Close.
type Subscriber struct {
	ID     string
	quizID string
	hub    *Hub
	ch     chan domain.Event

	once sync.Once
}

// Subscribe registers a new push-only client for quizID.
func (h *Hub) Subscribe(quizID string) *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		quizID: quizID,
		hub:    h,
		ch:     make(chan domain.Event, 8),
	}
	h.mu.Lock()
	set, ok := h.subs[quizID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[quizID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Events is the subscriber's receive stream.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.ch
}

// Close deregisters the subscriber and closes its stream. Safe to call more
// than once and after the hub has already dropped the subscriber.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// remove deregisters sub and closes its channel. The close happens under the
// hub write lock so it cannot race a Deliver holding the read lock.
func (h *Hub) remove(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	close(sub.ch)
	set, ok := h.subs[sub.quizID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.quizID)
	}
}

// SubscriberCount reports the live subscribers for a quiz.
func (h *Hub) SubscriberCount(quizID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[quizID])
}

// Deliver forwards ranking-bearing events to the quiz's subscribers. The
// push-only stream carries rankings and the end-of-quiz notice; room chatter
// stays on the bidirectional channel. Sends happen under the read lock:
// they never block, and a closing subscriber must not be able to close its
// channel mid-delivery.
func (h *Hub) Deliver(quizID string, ev domain.Event) {
	switch ev.Name {
	case domain.EventRankingsUpdate, domain.EventQuizEnded:
	default:
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[quizID] {
		select {
		case sub.ch <- ev:
		default:
			// Drop the oldest update so a slow consumer never blocks
			// delivery to the rest.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}
