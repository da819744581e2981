package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
	"quizlive-service/internal/session"
)

func newTestManager() *session.Manager {
	catalog := memory.NewCatalog(memory.NewStaticLoader(map[string]domain.Quiz{
		"quiz-1": twoQuestionQuiz(),
	}), 5*time.Minute)
	directory := memory.NewStaticDirectory(map[string]string{"u1": "Alice"})
	return session.NewManager(catalog, directory, &fakeClock{}, session.DefaultOptions())
}

func TestGetOrCreateConverges(t *testing.T) {
	manager := newTestManager()

	const workers = 16
	sessions := make([]*session.Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := manager.GetOrCreate(context.Background(), "quiz-1")
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if sessions[i] != sessions[0] {
			t.Fatalf("expected all creators to share one session instance")
		}
	}
	if manager.Len() != 1 {
		t.Fatalf("expected exactly one live session, got %d", manager.Len())
	}
}

func TestGetOrCreateUnknownQuiz(t *testing.T) {
	manager := newTestManager()

	_, err := manager.GetOrCreate(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if manager.Len() != 0 {
		t.Fatalf("expected no session created on catalog failure")
	}
}

func TestRemoveForgetsSession(t *testing.T) {
	manager := newTestManager()

	if _, err := manager.GetOrCreate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	manager.Remove("quiz-1")

	if _, ok := manager.Get("quiz-1"); ok {
		t.Fatalf("expected session forgotten")
	}
	if _, err := manager.Lookup("quiz-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	// Removing again is a no-op.
	manager.Remove("quiz-1")
}
