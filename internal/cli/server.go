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

	"whatsapp-quiz-bot/internal/app"
	"whatsapp-quiz-bot/internal/config"
	"whatsapp-quiz-bot/internal/infra/evolution"
	"whatsapp-quiz-bot/internal/infra/memory"
	"whatsapp-quiz-bot/internal/infra/postgres"
	redisinfra "whatsapp-quiz-bot/internal/infra/redis"
	"whatsapp-quiz-bot/internal/oracle/llm"
	"whatsapp-quiz-bot/internal/oracle/static"
	transport "whatsapp-quiz-bot/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the bot server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the WhatsApp quiz bot",
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

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 30*time.Minute)
	var sessions app.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	whitelist, whitelistAdmin, err := buildWhitelist(cfg, redisClient)
	if err != nil {
		return err
	}

	quizOracle, chatOracle := buildOracles(cfg, redisClient)

	var sink app.MessageSink = evolution.LogSink{}
	if cfg.Evolution.BaseURL != "" && cfg.Evolution.APIKey != "" {
		opts := []evolution.Option{}
		if cfg.Evolution.DelayMS > 0 {
			opts = append(opts, evolution.WithTypingDelay(cfg.Evolution.DelayMS))
		}
		sink = evolution.NewClient(cfg.Evolution.BaseURL, cfg.Evolution.Instance, cfg.Evolution.APIKey, opts...)
	} else {
		log.Printf("evolution api not configured, logging outbound messages instead")
	}

	var results app.ResultLogger
	if pool != nil {
		results = postgres.NewResultLogger(pool)
	}

	rps := cfg.RateLimit.PerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	service := app.NewFlowService(app.Config{
		Sessions:  sessions,
		Whitelist: whitelist,
		Quiz:      quizOracle,
		Chat:      chatOracle,
		Sink:      sink,
		Results:   results,
		Limiter:   app.NewEntityLimiter(rps, burst),
		GroupOnly: cfg.Bot.GroupOnly,
	})

	mux := http.NewServeMux()
	mux.Handle("/webhook", transport.NewWebhookHandler(service))
	mux.HandleFunc("/ws/ranking", transport.NewWSHandler(service).ServeWS)
	transport.NewAdminHandler(service, whitelistAdmin).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz bot on :%s", finalPort)
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

// buildWhitelist prefers Redis so admin changes reach every instance; the
// file-backed store keeps single-instance deployments dependency-free.
func buildWhitelist(cfg config.Config, redisClient *redis.Client) (app.Whitelist, transport.WhitelistAdmin, error) {
	if redisClient != nil {
		wl := redisinfra.NewWhitelist(redisClient)
		return wl, wl, nil
	}
	wl, err := memory.NewWhitelist(cfg.Whitelist.File)
	if err != nil {
		return nil, nil, err
	}
	return wl, wl, nil
}

func buildOracles(cfg config.Config, redisClient *redis.Client) (app.QuizOracle, app.ChatOracle) {
	if cfg.LLM.APIKey == "" {
		log.Printf("llm not configured, serving the sample question set")
		return static.NewOracle(nil), static.Tutor{}
	}

	client := llm.NewClient(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model)

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, time.Hour)
	var cache llm.QuestionCache
	if redisClient != nil {
		cache = redisinfra.NewQuestionCache(redisClient, quizTTL)
	} else {
		cache = memory.NewQuestionCache(quizTTL)
	}

	total := cfg.Quiz.TotalQuestions
	if total <= 0 {
		total = 5
	}
	topic := cfg.Quiz.Topic
	if topic == "" {
		topic = "general knowledge"
	}
	return llm.NewEngine(client, cache, topic, total), llm.NewTutor(client)
}
