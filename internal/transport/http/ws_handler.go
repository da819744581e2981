package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"quizlive-service/internal/domain"
	"quizlive-service/internal/session"
)

// WSHandler upgrades connections onto the bidirectional quiz channel and
// dispatches inbound messages into the session layer.
type WSHandler struct {
	manager  *session.Manager
	upgrader websocket.Upgrader
}

func NewWSHandler(manager *session.Manager) *WSHandler {
	return &WSHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinQuizPayload struct {
	QuizID string `json:"quizId"`
}

type startQuizPayload struct {
	QuizID string `json:"quizId"`
}

type submitAnswerPayload struct {
	QuizID     string          `json:"quizId"`
	QuestionID string          `json:"questionId"`
	Answer     json.RawMessage `json:"answer"`
}

// ServeWS handles one participant connection for its whole lifetime.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := newWSClient(conn)
	defer client.close()

	_ = client.Send(domain.Event{
		Name:    domain.EventConnection,
		Payload: "Successfully connected to quiz gateway",
	})

	var current *session.Session
	defer func() {
		if current != nil {
			current.Disconnect(userID, client)
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "join-quiz":
			joined := h.handleJoin(r.Context(), client, userID, inbound.Payload)
			if joined != nil {
				if current != nil && current != joined {
					current.Disconnect(userID, client)
				}
				current = joined
			}
		case "start-quiz":
			h.handleStart(client, userID, inbound.Payload)
		case "submit-answer":
			h.handleSubmit(client, userID, inbound.Payload)
		default:
			client.sendError("unsupported message type")
		}
	}
}

func (h *WSHandler) handleJoin(ctx context.Context, client *wsClient, userID string, raw json.RawMessage) *session.Session {
	var payload joinQuizPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.QuizID == "" {
		client.sendError("quiz ID is required")
		return nil
	}

	sess, err := h.manager.GetOrCreate(ctx, payload.QuizID)
	if err != nil {
		client.sendError(errorMessage(err))
		return nil
	}
	joined, err := sess.Join(ctx, userID, client)
	if err != nil {
		client.sendError(errorMessage(err))
		return nil
	}
	_ = client.Send(domain.Event{Name: domain.EventJoinedQuiz, Payload: joined})
	return sess
}

func (h *WSHandler) handleStart(client *wsClient, userID string, raw json.RawMessage) {
	var payload startQuizPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.QuizID == "" {
		client.sendError("quiz ID is required")
		return
	}

	sess, err := h.manager.Lookup(payload.QuizID)
	if err != nil {
		client.sendError(errorMessage(err))
		return
	}
	if err := sess.Start(userID); err != nil {
		client.sendError(errorMessage(err))
	}
}

func (h *WSHandler) handleSubmit(client *wsClient, userID string, raw json.RawMessage) {
	var payload submitAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.QuizID == "" || payload.QuestionID == "" || len(payload.Answer) == 0 {
		client.sendError(errorMessage(domain.ErrMissingField))
		return
	}
	answer, err := parseAnswer(payload.Answer)
	if err != nil {
		client.sendError(errorMessage(domain.ErrMissingField))
		return
	}

	sess, err := h.manager.Lookup(payload.QuizID)
	if err != nil {
		client.sendError(errorMessage(err))
		return
	}
	// The session unicasts answer-result back through the client's sink.
	if _, err := sess.SubmitAnswer(userID, payload.QuestionID, answer); err != nil {
		client.sendError(errorMessage(err))
	}
}

// parseAnswer accepts the answer index as a JSON number or a numeric string,
// matching the loosely-typed payloads real clients send.
func parseAnswer(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.Atoi(s)
	}
	return 0, domain.ErrMissingField
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "quiz session not found"
	default:
		return err.Error()
	}
}

// wsClient adapts a websocket connection into a session.Sink. All writes go
// through one writer goroutine; Send never blocks the session, preferring to
// drop the oldest queued event over stalling a broadcast.
type wsClient struct {
	conn *websocket.Conn
	send chan domain.Event

	mu     sync.Mutex
	closed bool
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan domain.Event, 32),
	}
	go c.writeLoop()
	return c
}

func (c *wsClient) writeLoop() {
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

func (c *wsClient) Send(ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
	return nil
}

func (c *wsClient) sendError(message string) {
	_ = c.Send(domain.Event{Name: domain.EventError, Payload: domain.ErrorPayload{Message: message}})
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
