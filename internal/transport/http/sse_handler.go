package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"quizlive-service/internal/domain"
	"quizlive-service/internal/session"
)

// SSEHandler serves the push-only ranking stream: clients subscribe by quiz
// ID and receive rankings-update events until they disconnect. The only
// inbound operation is the administrative re-broadcast trigger.
type SSEHandler struct {
	manager *session.Manager
	hub     *session.Hub
}

func NewSSEHandler(manager *session.Manager, hub *session.Hub) *SSEHandler {
	return &SSEHandler{manager: manager, hub: hub}
}

// Register mounts the SSE routes on mux.
func (h *SSEHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /sse/{quizId}/ranking", h.ServeRankingStream)
	mux.HandleFunc("POST /sse/{quizId}/ranking/update", h.TriggerRankingUpdate)
}

// ServeRankingStream streams ranking updates for one quiz until the client
// goes away. Closure is detected through the request context, which
// deregisters the subscriber.
func (h *SSEHandler) ServeRankingStream(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.hub.Subscribe(quizID)
	defer sub.Close()

	writeFrame(w, "", map[string]string{"type": "connected", "clientId": sub.ID})
	// Late subscribers see the current standing right away.
	if sess, ok := h.manager.Get(quizID); ok {
		writeFrame(w, domain.EventRankingsUpdate, domain.RankingUpdate{
			QuizID:   quizID,
			Rankings: sess.Rankings(),
		})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			writeFrame(w, ev.Name, ev.Payload)
			flusher.Flush()
		}
	}
}

// TriggerRankingUpdate forces an immediate ranking push for a live quiz.
func (h *SSEHandler) TriggerRankingUpdate(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quizId")
	sess, err := h.manager.Lookup(quizID)
	if err != nil {
		http.Error(w, "quiz session not found", http.StatusNotFound)
		return
	}
	sess.PublishRankings()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Ranking update broadcasted"})
}

func writeFrame(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("sse: marshal %s payload: %v", event, err)
		return
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
