package domain

// Event names pushed to clients. The same envelope travels over the
// websocket room and the SSE ranking stream.
const (
	EventConnection       = "connection"
	EventJoinedQuiz       = "joined-quiz"
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventRoomParticipants = "room-participants"
	EventQuizStarted      = "quiz-started"
	EventQuestion         = "question"
	EventQuestionEnded    = "question-ended"
	EventPlayerAnswered   = "player-answered"
	EventAnswerResult     = "answer-result"
	EventRankingsUpdate   = "rankings-update"
	EventQuizEnded        = "quiz-ended"
	EventError            = "error"
)

// Event is the envelope delivered to every connected client.
type Event struct {
	Name    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// JoinedQuizPayload greets a participant after a successful join.
type JoinedQuizPayload struct {
	Quiz         QuizInfo        `json:"quiz"`
	User         ParticipantInfo `json:"user"`
	Status       string          `json:"status"`
	Participants int             `json:"participants"`
}

// QuizInfo is the client-facing quiz metadata (no questions, no answers).
type QuizInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatorID   string `json:"creatorId"`
}

// RoomParticipantsPayload is the full membership pushed on join/leave.
type RoomParticipantsPayload struct {
	Count        int               `json:"count"`
	Participants []ParticipantInfo `json:"participants"`
}

// QuizStartedPayload announces the transition out of the lobby.
type QuizStartedPayload struct {
	Message        string `json:"message"`
	TotalQuestions int    `json:"totalQuestions"`
	QuizTitle      string `json:"quizTitle"`
}

// QuestionPayload carries the current question. The correct answer index is
// deliberately absent.
type QuestionPayload struct {
	Question  QuestionView `json:"question"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	TimeLimit int          `json:"timeLimit"`
}

// QuestionView strips the answer key from a Question before broadcast.
type QuestionView struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Points    int      `json:"points"`
	TimeLimit int      `json:"timeLimit"`
}

// ViewOf builds the broadcast-safe projection of a question.
func ViewOf(q Question) QuestionView {
	return QuestionView{
		ID:        q.ID,
		Text:      q.Text,
		Options:   q.Options,
		Points:    q.PointValue(),
		TimeLimit: int(q.Duration().Seconds()),
	}
}

// QuestionEndedPayload reveals the correct answer once the clock fires.
type QuestionEndedPayload struct {
	QuestionID    string `json:"questionId"`
	CorrectAnswer int    `json:"correctAnswer"`
}

// PlayerAnsweredPayload tells the room someone answered.
type PlayerAnsweredPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuizEndedPayload closes out a session with its final rankings.
type QuizEndedPayload struct {
	Message  string         `json:"message"`
	Rankings []RankingEntry `json:"rankings"`
}

// ErrorPayload carries a human-readable failure back to one connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
