package domain

import "time"

const (
	// DefaultPoints is awarded for a correct answer when the question
	// does not set its own value.
	DefaultPoints = 10
	// DefaultTimeLimit applies when a question carries no limit.
	DefaultTimeLimit = 30 * time.Second
	// MinTimeLimit and MaxTimeLimit bound the per-question clock.
	MinTimeLimit = 5 * time.Second
	MaxTimeLimit = 120 * time.Second
)

// Question models an MCQ question with one correct option index.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"` // 0-based index into Options
	Points        int      `json:"points"`
	TimeLimit     int      `json:"timeLimit"` // seconds
}

// PointValue returns the points awarded for a correct answer,
// falling back to the default for unset questions.
func (q Question) PointValue() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// Duration returns the question clock duration clamped to the allowed range.
func (q Question) Duration() time.Duration {
	d := time.Duration(q.TimeLimit) * time.Second
	if q.TimeLimit <= 0 {
		d = DefaultTimeLimit
	}
	if d < MinTimeLimit {
		d = MinTimeLimit
	}
	if d > MaxTimeLimit {
		d = MaxTimeLimit
	}
	return d
}

// Quiz is the session-lifetime view of a quiz: metadata plus the ordered
// question list, fetched once from the catalog when a session is created.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatorID   string     `json:"creatorId"`
	Questions   []Question `json:"questions"`
}

// ParticipantInfo is the membership view shared with clients.
type ParticipantInfo struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// RankingEntry is one row of a live or final ranking.
type RankingEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Position int    `json:"position"` // 1-based
}

// RankingUpdate is the ranking payload shared by both delivery channels.
type RankingUpdate struct {
	QuizID   string         `json:"quizId"`
	Rankings []RankingEntry `json:"rankings"`
}

// AnswerResult summarizes a submission outcome for the submitting user only.
type AnswerResult struct {
	IsCorrect     bool `json:"isCorrect"`
	PointsEarned  int  `json:"pointsEarned"`
	CorrectAnswer int  `json:"correctAnswer"`
}
