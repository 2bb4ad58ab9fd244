package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"exam-bot-service/internal/config"
	"exam-bot-service/internal/domain"
	mongostore "exam-bot-service/internal/infra/mongo"
	pgstore "exam-bot-service/internal/infra/postgres"
)

// questionInserter is the write capability seeding needs; the serving path
// never inserts.
type questionInserter interface {
	InsertQuestions(ctx context.Context, questions []domain.Question) error
}

// NewSeedCmd loads a JSON question-bank file into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions from a JSON file into the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "questions.json", "path to the question bank JSON file")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("%s contains no questions", file)
	}

	inserter, cleanup, err := buildInserter(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := inserter.InsertQuestions(ctx, questions); err != nil {
		return err
	}
	log.Printf("seeded %d questions from %s", len(questions), file)
	return nil
}

func buildInserter(ctx context.Context, cfg config.Config) (questionInserter, func(), error) {
	noop := func() {}

	if cfg.Mongo.URI != "" {
		client, err := mongodriver.Connect(ctx, mongooptions.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, noop, err
		}
		dbName := cfg.Mongo.Database
		if dbName == "" {
			dbName = defaultMongoDatabase
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return mongostore.NewQuestionStore(client.Database(dbName)), cleanup, nil
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, noop, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		return pgstore.NewQuestionStore(pool), pool.Close, nil
	}

	return nil, noop, fmt.Errorf("seeding requires a mongo or postgres store")
}
