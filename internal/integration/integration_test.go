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

	"exam-bot-service/internal/app"
	"exam-bot-service/internal/domain"
	pgstore "exam-bot-service/internal/infra/postgres"
	pgmigrations "exam-bot-service/internal/infra/postgres/migrations"
	redisstore "exam-bot-service/internal/infra/redis"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	questions := pgstore.NewQuestionStore(pool)
	if err := questions.InsertQuestions(ctx, sampleBank()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cached := redisstore.NewQuestionCache(redisClient, questions, 5*time.Minute)

	sender := &recordingSender{}
	service := app.NewBotService(cached, pgstore.NewProgressStore(pool), sender)

	// Keyword starts a quiz.
	if err := service.HandleEvent(ctx, domain.InboundEvent{SenderID: "u1", Text: "NEET"}); err != nil {
		t.Fatalf("serve: %v", err)
	}
	question := sender.last(t)
	if len(question.Buttons) != 4 {
		t.Fatalf("expected 4 buttons, got %d", len(question.Buttons))
	}

	// Answer: verdict plus next button for the stored category.
	if err := service.HandleEvent(ctx, domain.InboundEvent{SenderID: "u1", PostbackPayload: question.Buttons[0].Payload}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	verdict := sender.last(t)
	if len(verdict.Buttons) != 1 || verdict.Buttons[0].Payload != "NEXT|NEET" {
		t.Fatalf("expected NEET next button, got %+v", verdict.Buttons)
	}

	// Next and a final next exhaust the two-question bank.
	if err := service.HandleEvent(ctx, domain.InboundEvent{SenderID: "u1", PostbackPayload: "NEXT|NEET"}); err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(sender.last(t).Buttons) != 4 {
		t.Fatalf("expected second question, got %q", sender.last(t).Text)
	}
	if err := service.HandleEvent(ctx, domain.InboundEvent{SenderID: "u1", PostbackPayload: "NEXT|NEET"}); err != nil {
		t.Fatalf("exhausted next: %v", err)
	}
	if !strings.Contains(sender.last(t).Text, "completed all available questions for NEET") {
		t.Fatalf("expected exhaustion, got %q", sender.last(t).Text)
	}

	// Another user still has the full bank.
	if err := service.HandleEvent(ctx, domain.InboundEvent{SenderID: "u2", Text: "NEET"}); err != nil {
		t.Fatalf("serve u2: %v", err)
	}
	if len(sender.last(t).Buttons) != 4 {
		t.Fatalf("expected question for u2, got %q", sender.last(t).Text)
	}
}

type recordingSender struct {
	sent []domain.OutboundMessage
}

func (s *recordingSender) Send(_ context.Context, _ string, msg domain.OutboundMessage) error {
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) last(t *testing.T) domain.OutboundMessage {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatalf("no message sent")
	}
	return s.sent[len(s.sent)-1]
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{
			ExamName:      "NEET",
			QuestionText:  "Which pigment drives photosynthesis?",
			Options:       domain.Options{A: "Hemoglobin", B: "Chlorophyll", C: "Keratin", D: "Melanin"},
			CorrectOption: "b",
			Explanation:   "Chlorophyll absorbs light energy.",
		},
		{
			ExamName:      "NEET",
			QuestionText:  "How many chambers does the human heart have?",
			Options:       domain.Options{A: "Two", B: "Three", C: "Four", D: "Five"},
			CorrectOption: "c",
		},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
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
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
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

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
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
