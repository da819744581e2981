package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizlive-service/internal/domain"
)

// CatalogLoader loads quiz and question rows from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, COALESCE(description, ''), creator_id FROM quizzes WHERE id=$1`,
		quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.CreatorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, text, options, correct_answer, points, time_limit
		 FROM questions WHERE quiz_id=$1 ORDER BY position`,
		quizID,
	)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func (l *CatalogLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT id, text, options, correct_answer, points, time_limit
		 FROM questions WHERE id=$1`,
		questionID,
	)
	question, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (domain.Question, error) {
	var question domain.Question
	var options []byte
	err := row.Scan(&question.ID, &question.Text, &options, &question.CorrectAnswer, &question.Points, &question.TimeLimit)
	if err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(options, &question.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return question, nil
}

// DirectoryLoader resolves display names from the users table.
type DirectoryLoader struct {
	pool *pgxpool.Pool
}

func NewDirectoryLoader(pool *pgxpool.Pool) *DirectoryLoader {
	return &DirectoryLoader{pool: pool}
}

func (l *DirectoryLoader) LoadDisplayName(ctx context.Context, userID string) (string, error) {
	var username string
	err := l.pool.QueryRow(ctx, `SELECT username FROM users WHERE id=$1`, userID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	return username, nil
}
