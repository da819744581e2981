package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizlive-service/internal/config"
	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
	pgloader "quizlive-service/internal/infra/postgres"
	rediscache "quizlive-service/internal/infra/redis"
	"quizlive-service/internal/session"
	transport "quizlive-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var catalog session.Catalog
	var directory session.Directory
	switch {
	case pool != nil && redisClient != nil:
		catalog = rediscache.NewCatalog(redisClient, pgloader.NewCatalogLoader(pool), redisTTL)
		directory = rediscache.NewDirectory(redisClient, pgloader.NewDirectoryLoader(pool), redisTTL)
	case pool != nil:
		catalog = memory.NewCatalog(pgloader.NewCatalogLoader(pool), catalogTTL)
		directory = directoryLoaderAdapter{pgloader.NewDirectoryLoader(pool)}
	default:
		loader := memory.NewStaticLoader(sampleQuizzes())
		catalog = memory.NewCatalog(loader, catalogTTL)
		directory = memory.NewStaticDirectory(sampleUsers())
	}

	opts := session.DefaultOptions()
	opts.RevealPause = config.TTLDuration(cfg.Session.RevealPause, opts.RevealPause)
	opts.EndGrace = config.TTLDuration(cfg.Session.EndGrace, opts.EndGrace)
	if cfg.Session.LiveRankings != nil {
		opts.LiveRankings = *cfg.Session.LiveRankings
	}

	hub := session.NewHub()
	manager := session.NewManager(catalog, directory, session.WallClock{}, opts, hub)
	wsHandler := transport.NewWSHandler(manager)
	sseHandler := transport.NewSSEHandler(manager, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	sseHandler.Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE ranking stream stays open indefinitely.
	}

	go func() {
		log.Printf("starting quizlive service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// directoryLoaderAdapter exposes a DirectoryLoader as a session.Directory
// when no Redis cache sits in between.
type directoryLoaderAdapter struct {
	loader *pgloader.DirectoryLoader
}

func (a directoryLoaderAdapter) DisplayName(ctx context.Context, userID string) (string, error) {
	return a.loader.LoadDisplayName(ctx, userID)
}

// sampleQuizzes provides demo data for running without a database.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
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
				{
					ID:            "q2",
					Text:          "Which planet is known as the Red Planet?",
					Options:       []string{"Venus", "Mars", "Jupiter"},
					CorrectAnswer: 1,
					Points:        10,
					TimeLimit:     30,
				},
			},
		},
	}
}

func sampleUsers() map[string]string {
	return map[string]string{
		"u1": "Alice",
		"u2": "Bob",
	}
}
