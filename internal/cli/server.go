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
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"exam-bot-service/internal/app"
	"exam-bot-service/internal/config"
	"exam-bot-service/internal/domain"
	"exam-bot-service/internal/infra/memory"
	mongostore "exam-bot-service/internal/infra/mongo"
	pgstore "exam-bot-service/internal/infra/postgres"
	redisstore "exam-bot-service/internal/infra/redis"
	"exam-bot-service/internal/messenger"
	transport "exam-bot-service/internal/transport/http"
)

const defaultMongoDatabase = "exam_bot_db"

// NewStartCmd builds the CLI subcommand to start the webhook server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the webhook server",
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

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	questions, progress, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		// Store connectivity at startup is fatal: better no process than a
		// bot that acknowledges webhooks it cannot act on.
		return err
	}
	defer cleanup()

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		questions = redisstore.NewQuestionCache(redisClient, questions, cacheTTL)
	}

	sender := messenger.NewClient(cfg.Messenger.APIURL, cfg.Messenger.AccessToken)
	service := app.NewBotService(questions, progress, sender)
	webhook := transport.NewWebhookHandler(service, cfg.Messenger.VerifyToken)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/webhook", webhook.ServeWebhook)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam bot on :%s", finalPort)
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

// buildStores picks the question and progress stores from config: Mongo when
// a connection string is set, Postgres as the relational alternative, and an
// in-memory sample bank for local runs.
func buildStores(ctx context.Context, cfg config.Config) (app.QuestionStore, app.ProgressStore, func(), error) {
	noop := func() {}

	if cfg.Mongo.URI != "" {
		client, err := mongodriver.Connect(ctx, mongooptions.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, noop, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, noop, err
		}
		dbName := cfg.Mongo.Database
		if dbName == "" {
			dbName = defaultMongoDatabase
		}
		db := client.Database(dbName)
		log.Printf("connected to mongo database %s", dbName)
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return mongostore.NewQuestionStore(db), mongostore.NewProgressStore(db), cleanup, nil
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, noop, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, noop, err
		}
		log.Printf("connected to postgres")
		return pgstore.NewQuestionStore(pool), pgstore.NewProgressStore(pool), pool.Close, nil
	}

	log.Printf("no store configured, using in-memory sample bank")
	return memory.NewQuestionStore(sampleBank()), memory.NewProgressStore(), noop, nil
}

// sampleBank gives local runs something to serve without a database.
func sampleBank() []domain.Question {
	return []domain.Question{
		{
			ExamName:      "NEET",
			QuestionText:  "Which organelle is known as the powerhouse of the cell?",
			Options:       domain.Options{A: "Ribosome", B: "Mitochondrion", C: "Nucleus", D: "Golgi apparatus"},
			CorrectOption: "b",
			Explanation:   "Mitochondria produce most of the cell's ATP.",
		},
		{
			ExamName:      "JEE",
			QuestionText:  "What is the SI unit of force?",
			Options:       domain.Options{A: "Joule", B: "Pascal", C: "Newton", D: "Watt"},
			CorrectOption: "c",
			Explanation:   "Force = mass × acceleration, measured in newtons.",
		},
	}
}
