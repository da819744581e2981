package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
	"quizlive-service/internal/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalog := memory.NewCatalog(memory.NewStaticLoader(map[string]domain.Quiz{
		"quiz-1": sampleQuiz(),
	}), time.Minute)
	directory := memory.NewStaticDirectory(map[string]string{"u1": "Alice", "u2": "Bob"})
	manager := session.NewManager(catalog, directory, session.WallClock{}, session.DefaultOptions())
	handler := NewWSHandler(manager)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketQuizFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "u1")

	readUntil(conn, t, domain.EventConnection)

	send(conn, t, "join-quiz", map[string]any{"quizId": "quiz-1"})
	joined := readUntil(conn, t, domain.EventJoinedQuiz)
	quiz := joined["quiz"].(map[string]any)
	if quiz["id"] != "quiz-1" || quiz["creatorId"] != "u1" {
		t.Fatalf("unexpected joined payload %+v", joined)
	}

	send(conn, t, "start-quiz", map[string]any{"quizId": "quiz-1"})
	started := readUntil(conn, t, domain.EventQuizStarted)
	if started["totalQuestions"].(float64) != 1 {
		t.Fatalf("expected 1 question, got %+v", started)
	}
	question := readUntil(conn, t, domain.EventQuestion)
	if question["index"].(float64) != 0 {
		t.Fatalf("expected first question, got %+v", question)
	}

	send(conn, t, "submit-answer", map[string]any{
		"quizId":     "quiz-1",
		"questionId": "q1",
		"answer":     1,
	})
	result := readUntil(conn, t, domain.EventAnswerResult)
	if result["isCorrect"] != true || result["pointsEarned"].(float64) != 10 {
		t.Fatalf("unexpected answer result %+v", result)
	}
	rankings := readUntil(conn, t, domain.EventRankingsUpdate)
	entries := rankings["rankings"].([]any)
	top := entries[0].(map[string]any)
	if top["userId"] != "u1" || top["score"].(float64) != 10 || top["username"] != "Alice" {
		t.Fatalf("unexpected ranking %+v", top)
	}
}

func TestWebSocketNonCreatorCannotStart(t *testing.T) {
	server := newTestServer(t)
	creator := dialWS(t, server, "u1")
	player := dialWS(t, server, "u2")

	send(creator, t, "join-quiz", map[string]any{"quizId": "quiz-1"})
	readUntil(creator, t, domain.EventJoinedQuiz)
	send(player, t, "join-quiz", map[string]any{"quizId": "quiz-1"})
	readUntil(player, t, domain.EventJoinedQuiz)

	send(player, t, "start-quiz", map[string]any{"quizId": "quiz-1"})
	failure := readUntil(player, t, domain.EventError)
	if failure["message"] != "only the quiz creator can start the quiz" {
		t.Fatalf("unexpected error payload %+v", failure)
	}
}

func TestWebSocketStringAnswerAccepted(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "u1")

	send(conn, t, "join-quiz", map[string]any{"quizId": "quiz-1"})
	readUntil(conn, t, domain.EventJoinedQuiz)
	send(conn, t, "start-quiz", map[string]any{"quizId": "quiz-1"})
	readUntil(conn, t, domain.EventQuestion)

	send(conn, t, "submit-answer", map[string]any{
		"quizId":     "quiz-1",
		"questionId": "q1",
		"answer":     "1",
	})
	result := readUntil(conn, t, domain.EventAnswerResult)
	if result["isCorrect"] != true {
		t.Fatalf("expected numeric string accepted, got %+v", result)
	}
}

func TestWebSocketMalformedSubmit(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "u1")

	send(conn, t, "join-quiz", map[string]any{"quizId": "quiz-1"})
	readUntil(conn, t, domain.EventJoinedQuiz)

	send(conn, t, "submit-answer", map[string]any{"quizId": "quiz-1"})
	failure := readUntil(conn, t, domain.EventError)
	if failure["message"] != domain.ErrMissingField.Error() {
		t.Fatalf("unexpected error payload %+v", failure)
	}
}

func TestWebSocketRequiresUserID(t *testing.T) {
	server := newTestServer(t)
	u := "ws" + server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func send(conn *websocket.Conn, t *testing.T, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil consumes events until one with the wanted type arrives.
func readUntil(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", want, err)
		}
		if msg.Type != want {
			continue
		}
		payload := map[string]any{}
		_ = json.Unmarshal(msg.Payload, &payload)
		return payload
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Warm-up",
		CreatorID: "u1",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4", "5"},
				CorrectAnswer: 1,
				Points:        10,
				TimeLimit:     30,
			},
		},
	}
}
