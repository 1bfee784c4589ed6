package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/SamuelNikhil/QuizWall-game/internal/app"
	"github.com/SamuelNikhil/QuizWall-game/internal/config"
	"github.com/SamuelNikhil/QuizWall-game/internal/infra/memory"
	infrapg "github.com/SamuelNikhil/QuizWall-game/internal/infra/postgres"
	infraredis "github.com/SamuelNikhil/QuizWall-game/internal/infra/redis"
	"github.com/SamuelNikhil/QuizWall-game/internal/infra/trivia"
	transport "github.com/SamuelNikhil/QuizWall-game/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz game server",
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

	var bunDB *bun.DB
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Team persistence prefers Postgres, then Redis, then memory.
	var store app.TeamStore = memory.NewTeamStore()
	switch {
	case bunDB != nil:
		store = infrapg.NewTeamStore(bunDB)
	case redisClient != nil:
		store = infraredis.NewTeamStore(redisClient)
	}

	// Questions come from the generation API when configured, else from the
	// questions table, else from the built-in set. The engine falls back to
	// the built-in set anyway if the chosen source fails at game start.
	var source app.QuestionSource = memory.NewStaticSource(app.DefaultQuestions())
	questionTimeout := config.Duration(cfg.Questions.Timeout, 10*time.Second)
	switch {
	case cfg.Questions.URL != "":
		source = trivia.NewSource(cfg.Questions.URL, questionTimeout)
	case pool != nil:
		source = infrapg.NewQuestionSource(pool)
	}

	rooms := app.NewRoomManager(source, store)
	coordinator := app.NewCoordinator(rooms, store)
	wsHandler := transport.NewWSHandler(coordinator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/screen", wsHandler.ServeScreen)
	mux.HandleFunc("/ws/controller", wsHandler.ServeController)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizwall server on :%s", finalPort)
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
