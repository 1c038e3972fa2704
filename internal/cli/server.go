package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizsync/internal/app"
	"quizsync/internal/config"
	filestore "quizsync/internal/infra/file"
	"quizsync/internal/infra/memory"
	pgbank "quizsync/internal/infra/postgres"
	redisstore "quizsync/internal/infra/redis"
	transport "quizsync/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
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

	// State lives in Redis when available, otherwise in a single local file.
	var store app.StateStore
	if redisClient != nil {
		store = redisstore.NewStateStore(redisClient, cfg.State.RedisKey)
	} else {
		statePath := cfg.State.Path
		if statePath == "" {
			statePath = "quizstate.json"
		}
		store = filestore.NewStateStore(statePath)
	}

	// Question sets come from Postgres when configured, cached in Redis when
	// available; the built-in deck covers everything else and acts as the
	// fallback for malformed batches.
	fallback := memory.DefaultQuestions()
	cacheTTL := config.DurationOr(cfg.Quiz.CacheTTL, 10*time.Minute)
	var source app.QuestionSource = memory.NewStaticQuestionSource(fallback)
	if pool != nil && cfg.Quiz.Set != "" {
		loader := pgbank.NewQuestionBank(pool)
		if redisClient != nil {
			source = redisstore.NewQuestionCache(redisClient, loader, cfg.Quiz.Set, cacheTTL)
		} else {
			source = memory.NewCachedQuestionSource(loader, cfg.Quiz.Set, cacheTTL)
		}
	}
	source = app.NewFallbackSource(source, fallback)

	clock := app.NewSessionClock(config.DurationOr(cfg.Quiz.QuestionDuration, app.DefaultQuestionDuration))
	controller := app.NewQuizController(store, source, clock, cfg.Quiz.PointValue)
	refresh := config.DurationOr(cfg.Quiz.Refresh, transport.DefaultRefresh)
	wsHandler := transport.NewWSHandler(controller, refresh)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizsync on :%s", finalPort)
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
