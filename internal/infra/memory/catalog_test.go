package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlive-service/internal/domain"
)

func TestCatalogCaches(t *testing.T) {
	loader := &countingLoader{
		CatalogLoader: NewStaticLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	catalog := NewCatalog(loader, time.Minute)

	if _, err := catalog.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := catalog.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCatalogQuestionFromCachedQuiz(t *testing.T) {
	loader := &countingLoader{
		CatalogLoader: NewStaticLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	catalog := NewCatalog(loader, time.Minute)

	if _, err := catalog.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	question, err := catalog.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if question.CorrectAnswer != 1 {
		t.Fatalf("unexpected question %+v", question)
	}
	if loader.calls != 1 {
		t.Fatalf("expected question served from cached quiz, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderNotFound(t *testing.T) {
	loader := NewStaticLoader(nil)
	if _, err := loader.LoadQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := loader.LoadQuestion(context.Background(), "missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestStaticDirectory(t *testing.T) {
	directory := NewStaticDirectory(map[string]string{"u1": "Alice"})
	name, err := directory.DisplayName(context.Background(), "u1")
	if err != nil || name != "Alice" {
		t.Fatalf("expected Alice, got %q (%v)", name, err)
	}
	if _, err := directory.DisplayName(context.Background(), "u2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

type countingLoader struct {
	CatalogLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.CatalogLoader.LoadQuiz(ctx, quizID)
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
