package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
	pgloader "trivia-service/internal/infra/postgres"
	redisinfra "trivia-service/internal/infra/redis"
	transport "trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
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
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleQuestions())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	bankTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var questions game.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionBank(redisClient, loader, bankTTL)
	} else {
		questions = memory.NewQuestionBank(loader, bankTTL)
	}

	gameCfg := game.DefaultConfig()
	gameCfg.RoundDuration = config.Duration(cfg.Game.RoundDuration, gameCfg.RoundDuration)
	gameCfg.SettleDelay = config.Duration(cfg.Game.SettleDelay, gameCfg.SettleDelay)
	gameCfg.ResetDelay = config.Duration(cfg.Game.ResetDelay, gameCfg.ResetDelay)
	if cfg.Game.TotalRounds > 0 {
		gameCfg.TotalRounds = cfg.Game.TotalRounds
	}

	hub := transport.NewHub()
	factory := func(roomID string) *game.Session {
		return game.NewSession(roomID, gameCfg, questions, hub)
	}

	var store game.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL, factory)
	} else {
		store = memory.NewSessionStore(factory)
	}
	service := game.NewService(store)
	wsHandler := transport.NewWSHandler(service, hub)

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
		log.Printf("starting trivia service on :%s", finalPort)
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

// sampleQuestions provides a minimal bank; configure Postgres to serve real
// content in production.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Question: "What is the capital of France?",
			Answer:   "Paris",
			Options:  []string{"Paris", "Lyon", "Marseille", "Nice"},
		},
		{
			Question: "Which planet is known as the Red Planet?",
			Answer:   "Mars",
			Options:  []string{"Venus", "Mars", "Jupiter", "Saturn"},
		},
		{
			Question: "What is 7 x 8?",
			Answer:   "56",
			Options:  []string{"54", "56", "63", "48"},
		},
		{
			Question: "Who wrote 'Romeo and Juliet'?",
			Answer:   "William Shakespeare",
			Options:  []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"},
		},
	}
}
