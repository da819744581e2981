package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizlive-service/internal/domain"
	pgloader "quizlive-service/internal/infra/postgres"
	pgmigrations "quizlive-service/internal/infra/postgres/migrations"
	infraredis "quizlive-service/internal/infra/redis"
	"quizlive-service/internal/session"
)

func TestQuizRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	catalog := infraredis.NewCatalog(redisClient, pgloader.NewCatalogLoader(pool), 5*time.Minute)
	directory := infraredis.NewDirectory(redisClient, pgloader.NewDirectoryLoader(pool), 5*time.Minute)

	hub := session.NewHub()
	manager := session.NewManager(catalog, directory, session.WallClock{}, session.Options{
		RevealPause:  50 * time.Millisecond,
		EndGrace:     time.Minute,
		LiveRankings: true,
	}, hub)

	sess, err := manager.GetOrCreate(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	alice := newCollector()
	bob := newCollector()
	joined, err := sess.Join(ctx, "u1", alice)
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if joined.Quiz.Title != "Capitals" || joined.User.Username != "Alice" {
		t.Fatalf("unexpected join payload %+v", joined)
	}
	if _, err := sess.Join(ctx, "u2", bob); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	sub := hub.Subscribe("quiz-1")
	defer sub.Close()

	if err := sess.Start("u1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.SubmitAnswer("u2", "q1", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rankings := sess.Rankings()
	if len(rankings) != 2 || rankings[0].UserID != "u2" || rankings[0].Score != 10 {
		t.Fatalf("expected bob leading with 10, got %+v", rankings)
	}
	if rankings[0].Username != "Bob" {
		t.Fatalf("expected username resolved from postgres, got %+v", rankings[0])
	}

	waitForRankings(t, sub)
}

func waitForRankings(t *testing.T, sub *session.Subscriber) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			if ev.Name == domain.EventRankingsUpdate {
				return
			}
		case <-deadline:
			t.Fatalf("rankings never reached the hub")
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	statements := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO users (id, username) VALUES (?, ?)`, []interface{}{"u1", "Alice"}},
		{`INSERT INTO users (id, username) VALUES (?, ?)`, []interface{}{"u2", "Bob"}},
		{`INSERT INTO quizzes (id, title, description, creator_id) VALUES (?, ?, ?, ?)`,
			[]interface{}{"quiz-1", "Capitals", "Guess the capital", "u1"}},
		{`INSERT INTO questions (id, quiz_id, position, text, options, correct_answer, points, time_limit)
		  VALUES (?, ?, ?, ?, ?::jsonb, ?, ?, ?)`,
			[]interface{}{"q1", "quiz-1", 0, "Capital of France?", `["Paris","Rome","Berlin"]`, 0, 10, 30}},
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

type collector struct {
	events chan domain.Event
}

func newCollector() *collector {
	return &collector{events: make(chan domain.Event, 64)}
}

func (c *collector) Send(ev domain.Event) error {
	select {
	case c.events <- ev:
	default:
	}
	return nil
}
