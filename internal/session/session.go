package session

import (
	"context"
	"log"
	"sync"
	"time"

	"quizlive-service/internal/domain"
)

// Status is the lifecycle state of a live quiz session.
type Status int

const (
	StatusLobby Status = iota
	StatusRunning
	StatusRevealing
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusLobby:
		return "lobby"
	case StatusRunning:
		return "running"
	case StatusRevealing:
		return "revealing"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Catalog is the read-only quiz provider. Quiz content is fetched once per
// session and never re-resolved mid-run.
type Catalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// Directory resolves user IDs to display names. Lookups may fail; callers
// fall back to the raw ID.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Options tune session pacing and broadcast policy.
type Options struct {
	// RevealPause is the gap between revealing an answer and the next question.
	RevealPause time.Duration
	// EndGrace keeps an ended session around so late lookups still see the
	// final state before it is forgotten.
	EndGrace time.Duration
	// LiveRankings re-broadcasts rankings after every submission instead of
	// only at question end.
	LiveRankings bool
}

// DefaultOptions: 3s between questions, 30s of post-end visibility, live
// leaderboard on.
func DefaultOptions() Options {
	return Options{
		RevealPause:  3 * time.Second,
		EndGrace:     30 * time.Second,
		LiveRankings: true,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.RevealPause <= 0 {
		o.RevealPause = def.RevealPause
	}
	if o.EndGrace <= 0 {
		o.EndGrace = def.EndGrace
	}
	return o
}

// Session drives one live run of a quiz: lobby, per-question clock, answer
// collection, ranking broadcasts, teardown. Every mutation, including timer
// callbacks, is serialized by one mutex; different sessions are independent.
type Session struct {
	quizID    string
	quiz      domain.Quiz
	clock     Clock
	directory Directory
	opts      Options
	room      *Room
	sinks     []EventSink
	onRemove  func()

	mu       sync.Mutex
	status   Status
	current  int // -1 before the first question
	board    *ScoreBoard
	answered map[int]map[string]struct{}
	names    map[string]string
	timer    Timer
	timerGen uint64
	removed  bool
}

func newSession(quiz domain.Quiz, clock Clock, directory Directory, opts Options, extra []EventSink, onRemove func()) *Session {
	room := NewRoom(quiz.ID)
	sinks := make([]EventSink, 0, len(extra)+1)
	sinks = append(sinks, room)
	sinks = append(sinks, extra...)
	return &Session{
		quizID:    quiz.ID,
		quiz:      quiz,
		clock:     clock,
		directory: directory,
		opts:      opts.withDefaults(),
		room:      room,
		sinks:     sinks,
		onRemove:  onRemove,
		status:    StatusLobby,
		current:   -1,
		board:     NewScoreBoard(),
		answered:  make(map[int]map[string]struct{}),
		names:     make(map[string]string),
	}
}

// QuizID returns the quiz this session runs.
func (s *Session) QuizID() string { return s.quizID }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Join registers userID with the given connection sink. Rejoining replaces
// the prior handle without duplicating membership. Existing members learn
// about fresh joins and everyone gets the updated participant list plus an
// initial ranking push.
func (s *Session) Join(ctx context.Context, userID string, sink Sink) (domain.JoinedQuizPayload, error) {
	name := s.resolveName(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusEnded {
		return domain.JoinedQuizPayload{}, domain.ErrInvalidState
	}

	rejoined := s.room.Add(userID, name, sink)
	if !rejoined {
		s.publishLocked(domain.Event{Name: domain.EventPlayerJoined, Payload: domain.ParticipantInfo{
			UserID:   userID,
			Username: name,
		}})
	}
	s.publishParticipantsLocked()
	s.publishRankingsLocked()

	return domain.JoinedQuizPayload{
		Quiz: domain.QuizInfo{
			ID:          s.quiz.ID,
			Title:       s.quiz.Title,
			Description: s.quiz.Description,
			CreatorID:   s.quiz.CreatorID,
		},
		User:         domain.ParticipantInfo{UserID: userID, Username: name},
		Status:       s.status.String(),
		Participants: s.room.Len(),
	}, nil
}

// Start moves the session from lobby to the first question. Only the quiz
// creator may start, and only once.
func (s *Session) Start(requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return domain.ErrInvalidState
	}
	if requesterID != s.quiz.CreatorID {
		return domain.ErrNotCreator
	}
	if len(s.quiz.Questions) == 0 {
		return domain.ErrEmptyQuiz
	}

	s.board = NewScoreBoard()
	s.answered = make(map[int]map[string]struct{})
	s.publishLocked(domain.Event{Name: domain.EventQuizStarted, Payload: domain.QuizStartedPayload{
		Message:        "Quiz is starting",
		TotalQuestions: len(s.quiz.Questions),
		QuizTitle:      s.quiz.Title,
	}})
	s.publishRankingsLocked()

	s.status = StatusRunning
	s.current = 0
	s.sendQuestionLocked()
	return nil
}

// SubmitAnswer scores one answer against the current question. A user may
// answer each question at most once; answers for stale or future questions
// are rejected without touching the board.
func (s *Session) SubmitAnswer(userID, questionID string, answer int) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return domain.AnswerResult{}, domain.ErrInvalidState
	}
	if !s.room.Has(userID) {
		return domain.AnswerResult{}, domain.ErrNotJoined
	}

	question := s.quiz.Questions[s.current]
	if question.ID != questionID {
		return domain.AnswerResult{}, domain.ErrStaleAnswer
	}

	seen, ok := s.answered[s.current]
	if !ok {
		seen = make(map[string]struct{})
		s.answered[s.current] = seen
	}
	if _, dup := seen[userID]; dup {
		return domain.AnswerResult{}, domain.ErrDuplicateAnswer
	}
	seen[userID] = struct{}{}

	correct := answer == question.CorrectAnswer
	earned := 0
	if correct {
		earned = question.PointValue()
	}
	s.board.AddPoints(userID, earned)

	result := domain.AnswerResult{
		IsCorrect:     correct,
		PointsEarned:  earned,
		CorrectAnswer: question.CorrectAnswer,
	}
	s.room.Send(userID, domain.Event{Name: domain.EventAnswerResult, Payload: result})
	s.publishLocked(domain.Event{Name: domain.EventPlayerAnswered, Payload: domain.PlayerAnsweredPayload{
		UserID:    userID,
		Username:  s.cachedName(userID),
		IsCorrect: correct,
	}})
	if s.opts.LiveRankings {
		s.publishRankingsLocked()
	}
	return result, nil
}

// Leave removes userID from the room. The last participant leaving abandons
// the session: the timer is cancelled and the session ends immediately.
func (s *Session) Leave(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked(userID)
}

// Disconnect removes userID only when sink is still their registered handle.
// A stale connection closing after a rejoin must not evict the replacement.
func (s *Session) Disconnect(userID string, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.room.SinkOf(userID)
	if !ok || current != sink {
		return
	}
	s.leaveLocked(userID)
}

func (s *Session) leaveLocked(userID string) {
	if !s.room.Has(userID) {
		return
	}

	name := s.cachedName(userID)
	empty := s.room.Remove(userID)
	s.publishLocked(domain.Event{Name: domain.EventPlayerLeft, Payload: domain.ParticipantInfo{
		UserID:   userID,
		Username: name,
	}})
	s.publishParticipantsLocked()

	if !empty {
		return
	}
	if s.status != StatusEnded {
		log.Printf("session %s: abandoned with no participants", s.quizID)
		s.cancelTimerLocked()
		s.status = StatusEnded
		s.publishLocked(domain.Event{Name: domain.EventQuizEnded, Payload: domain.QuizEndedPayload{
			Message:  "Quiz abandoned",
			Rankings: s.rankLocked(),
		}})
	}
	s.removeLocked()
}

// PublishRankings recomputes and broadcasts the current rankings on demand.
// Administrative callers use this to force a push on the ranking stream.
func (s *Session) PublishRankings() []domain.RankingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishRankingsLocked()
}

// Rankings returns the current ordering without broadcasting.
func (s *Session) Rankings() []domain.RankingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankLocked()
}

// sendQuestionLocked broadcasts the current question and arms its clock.
func (s *Session) sendQuestionLocked() {
	question := s.quiz.Questions[s.current]
	s.publishLocked(domain.Event{Name: domain.EventQuestion, Payload: domain.QuestionPayload{
		Question:  domain.ViewOf(question),
		Index:     s.current,
		Total:     len(s.quiz.Questions),
		TimeLimit: int(question.Duration().Seconds()),
	}})
	s.armLocked(question.Duration(), s.questionDeadline)
}

// questionDeadline fires when the question clock elapses: reveal the answer,
// re-rank, then pause before advancing.
func (s *Session) questionDeadline(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.status != StatusRunning {
		// A cancellation or restart won the race; this timer is stale.
		return
	}

	question := s.quiz.Questions[s.current]
	s.status = StatusRevealing
	s.publishLocked(domain.Event{Name: domain.EventQuestionEnded, Payload: domain.QuestionEndedPayload{
		QuestionID:    question.ID,
		CorrectAnswer: question.CorrectAnswer,
	}})
	s.publishRankingsLocked()
	s.armLocked(s.opts.RevealPause, s.advanceDeadline)
}

// advanceDeadline fires after the reveal pause: next question or the end.
func (s *Session) advanceDeadline(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.status != StatusRevealing {
		return
	}

	if s.current+1 >= len(s.quiz.Questions) {
		s.endLocked("Quiz has ended")
		return
	}
	s.current++
	s.status = StatusRunning
	s.sendQuestionLocked()
}

// endLocked finishes the session: final rankings out, deferred cleanup armed.
func (s *Session) endLocked(message string) {
	s.status = StatusEnded
	s.publishLocked(domain.Event{Name: domain.EventQuizEnded, Payload: domain.QuizEndedPayload{
		Message:  message,
		Rankings: s.rankLocked(),
	}})
	s.armLocked(s.opts.EndGrace, s.cleanupDeadline)
}

func (s *Session) cleanupDeadline(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen {
		return
	}
	s.removeLocked()
}

// armLocked replaces the session's timer. Cancelling before arming keeps the
// one-live-timer invariant; the generation number lets a fired callback
// detect that it has been superseded.
func (s *Session) armLocked(d time.Duration, fn func(gen uint64)) {
	s.cancelTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.Arm(d, func() { fn(gen) })
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) removeLocked() {
	if s.removed {
		return
	}
	s.removed = true
	s.cancelTimerLocked()
	if s.onRemove != nil {
		s.onRemove()
	}
}

func (s *Session) publishLocked(ev domain.Event) {
	for _, sink := range s.sinks {
		sink.Deliver(s.quizID, ev)
	}
}

func (s *Session) publishParticipantsLocked() {
	participants := s.room.Participants()
	s.publishLocked(domain.Event{Name: domain.EventRoomParticipants, Payload: domain.RoomParticipantsPayload{
		Count:        len(participants),
		Participants: participants,
	}})
}

func (s *Session) publishRankingsLocked() []domain.RankingEntry {
	rankings := s.rankLocked()
	s.publishLocked(domain.Event{Name: domain.EventRankingsUpdate, Payload: domain.RankingUpdate{
		QuizID:   s.quizID,
		Rankings: rankings,
	}})
	return rankings
}

func (s *Session) rankLocked() []domain.RankingEntry {
	participants := s.room.Participants()
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return s.board.Rank(s.board.Snapshot(), ids, s.cachedName)
}

// resolveName looks a display name up once per session, falling back to the
// raw ID when the directory has no entry.
func (s *Session) resolveName(ctx context.Context, userID string) string {
	s.mu.Lock()
	if name, ok := s.names[userID]; ok {
		s.mu.Unlock()
		return name
	}
	s.mu.Unlock()

	name, err := s.directory.DisplayName(ctx, userID)
	if err != nil {
		log.Printf("session %s: directory lookup for %s failed: %v", s.quizID, userID, err)
		name = userID
	}

	s.mu.Lock()
	s.names[userID] = name
	s.mu.Unlock()
	return name
}

// cachedName is the lock-held variant used during ranking computation; it
// never performs I/O.
func (s *Session) cachedName(userID string) string {
	if name, ok := s.names[userID]; ok {
		return name
	}
	return userID
}
