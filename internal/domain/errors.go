package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz could not be resolved from the catalog.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is unknown to the catalog.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates the directory has no entry for a user ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when no live session exists for a quiz.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotCreator is returned when someone other than the quiz creator
	// tries to start it.
	ErrNotCreator = errors.New("only the quiz creator can start the quiz")
	// ErrInvalidState is returned when an action is illegal for the
	// session's current status.
	ErrInvalidState = errors.New("action not allowed in current session state")
	// ErrEmptyQuiz is returned when starting a quiz with no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrDuplicateAnswer is returned on a second submission for the same question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrStaleAnswer is returned when a submission targets a question that
	// is not the current one.
	ErrStaleAnswer = errors.New("answer does not match the current question")
	// ErrNotJoined is returned when a user acts on a session they have not joined.
	ErrNotJoined = errors.New("participant has not joined this quiz")
	// ErrMissingField is returned for malformed inbound messages.
	ErrMissingField = errors.New("missing required fields")
)
