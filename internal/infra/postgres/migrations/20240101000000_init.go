package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	creator_id TEXT NOT NULL REFERENCES users (id)
);

CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	quiz_id TEXT NOT NULL REFERENCES quizzes (id),
	position INT NOT NULL,
	text TEXT NOT NULL,
	options JSONB NOT NULL,
	correct_answer INT NOT NULL,
	points INT NOT NULL DEFAULT 10,
	time_limit INT NOT NULL DEFAULT 30
);

CREATE INDEX IF NOT EXISTS questions_quiz_id_idx ON questions (quiz_id, position);
`

const dropSchemaSQL = `
DROP TABLE IF EXISTS questions;
DROP TABLE IF EXISTS quizzes;
DROP TABLE IF EXISTS users;
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, dropSchemaSQL)
			return err
		},
	)
}
