package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
	"quiz-session-engine/internal/infra/local"
	"quiz-session-engine/internal/infra/memory"
	pgloader "quiz-session-engine/internal/infra/postgres"
	redisinfra "quiz-session-engine/internal/infra/redis"
	"quiz-session-engine/internal/infra/rest"
	transport "quiz-session-engine/internal/transport/http"
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var refresher engine.CacheRefresher
	if redisClient != nil {
		refresher = redisinfra.NewSectionInvalidator(redisClient)
	}

	provider, err := buildProvider(ctx, cfg, redisClient, redisTTL)
	if err != nil {
		return err
	}

	loader := engine.NewLoader(provider, refresher, cfg.Quiz.Randomize)
	wsHandler := transport.NewWSHandler(loader)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Write timeout stays unset; websocket sessions outlive any sane value.
	}

	go func() {
		log.Printf("starting quiz session engine on :%s", finalPort)
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

// buildProvider picks the question source: the remote game backend when one
// is configured, otherwise locally hosted banks (Postgres-backed when
// available, sample data as a last resort).
func buildProvider(ctx context.Context, cfg config.Config, redisClient *redis.Client, redisTTL time.Duration) (engine.QuestionProvider, error) {
	if cfg.Backend.URL != "" {
		return rest.NewClient(cfg.Backend.URL, cfg.Backend.Token), nil
	}

	var bankLoader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		bankLoader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var banks local.BankRepository
	var marker local.SessionMarker
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, bankLoader, bankTTL)
		marker = redisinfra.NewSessionMarker(redisClient, redisTTL)
	} else {
		banks = memory.NewBankRepository(bankLoader, bankTTL)
	}

	return local.NewProvider(banks, local.Config{
		QuestionCount: cfg.Quiz.Questions,
		PoolSize:      cfg.Quiz.PoolSize,
		Marker:        marker,
	}), nil
}

// sampleBanks provides a minimal bank so the engine is playable out of the
// box; production deployments load banks from Postgres.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"bank-1": {
			ID: "bank-1",
			Questions: []domain.BankQuestion{
				{
					QuizID:     "bq-1",
					PromptHTML: "<p>What is 2 + 2?</p>",
					Answers:    []string{"4", "3", "5"},
					TimeSec:    60,
					Difficulty: "easy",
				},
				{
					QuizID:     "bq-2",
					PromptHTML: "<p>What is 3 &times; 3?</p>",
					Answers:    []string{"9", "6", "12"},
					TimeSec:    60,
					Difficulty: "easy",
				},
				{
					QuizID:      "bq-3",
					PromptHTML:  "<p>What is 12 &divide; 4?</p>",
					Answers:     []string{"3", "4", "6"},
					TimeSec:     60,
					Difficulty:  "medium",
					Explanation: "<p>12 divided by 4 is 3.</p>",
				},
			},
		},
	}
}
