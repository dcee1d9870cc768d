package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
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

	"whatsapp-quiz-bot/internal/app"
	infrapg "whatsapp-quiz-bot/internal/infra/postgres"
	pgmigrations "whatsapp-quiz-bot/internal/infra/postgres/migrations"
	infraredis "whatsapp-quiz-bot/internal/infra/redis"
	"whatsapp-quiz-bot/internal/oracle/static"
)

type recordingSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSink) SendText(_ context.Context, _, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSink) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

type allowAll struct{}

func (allowAll) IsAllowed(context.Context, string) (bool, error) { return true, nil }

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	sink := &recordingSink{}
	service := app.NewFlowService(app.Config{
		Sessions:  infraredis.NewSessionStore(redisClient, 5*time.Minute),
		Whitelist: allowAll{},
		Quiz:      static.NewOracle(nil),
		Chat:      static.Tutor{},
		Sink:      sink,
		Results:   infrapg.NewResultLogger(pool),
	})

	// Answer every question correctly, advancing through the whole quiz.
	// The sample set has three questions with answers B, C, B.
	entity := "5511999@s.whatsapp.net"
	script := []string{"START", "B", "NEXT", "C", "NEXT", "B", "NEXT"}
	for i, text := range script {
		in := app.Inbound{
			EntityID:  entity,
			MessageID: fmt.Sprintf("m%d", i),
			SenderID:  entity,
			Text:      text,
		}
		if err := service.HandleMessage(ctx, in); err != nil {
			t.Fatalf("handle %q: %v", text, err)
		}
	}

	if !strings.Contains(sink.last(), "3/3") {
		t.Fatalf("expected final results message, got %q", sink.last())
	}

	// Redelivering the final message must not produce another results row.
	if err := service.HandleMessage(ctx, app.Inbound{
		EntityID: entity, MessageID: "m6", SenderID: entity, Text: "NEXT",
	}); err == nil {
		t.Fatalf("expected duplicate delivery to be rejected")
	}

	var count, score, correct int
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(MAX(correct_count), 0) FROM quiz_results WHERE entity_id=$1`,
		entity,
	).Scan(&count, &score, &correct)
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one persisted result, got %d", count)
	}
	if score != 6 || correct != 3 {
		t.Fatalf("expected score 6 with 3 correct, got score=%d correct=%d", score, correct)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
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
