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

	"review-game-service/internal/app"
	"review-game-service/internal/domain"
	gamepg "review-game-service/internal/infra/postgres"
	gameredis "review-game-service/internal/infra/redis"
	pgmigrations "review-game-service/internal/infra/postgres/migrations"
)

type fixedProvider struct{}

func (fixedProvider) Snapshot(_ context.Context, date string) (domain.MarketSnapshot, error) {
	return domain.MarketSnapshot{
		Date: date,
		Overview: domain.OverviewFacts{
			LimitUpCount: 38,
			MarketPhase:  "frenzy",
		},
	}, nil
}

func metric(v float64) *float64 { return &v }

func TestGameLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := gameredis.NewLeaderboardCache(redisClient, 5*time.Minute)
	store := gamepg.NewStore(pool)
	service := app.NewGameService(store, fixedProvider{}, app.DefaultRules(), cache)

	date := "2025-08-03"
	questions, err := service.Issue(ctx, date)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(questions) != domain.StepCount {
		t.Fatalf("expected %d questions, got %d", domain.StepCount, len(questions))
	}

	// Re-issuing before verification is an idempotent upsert.
	if _, err := service.Issue(ctx, date); err != nil {
		t.Fatalf("re-issue: %v", err)
	}

	submissions := []app.SubmitRequest{
		{UserID: "alice", Date: date, Step: domain.StepMarketOverview, OptionID: "A", Confidence: 1.0},
		{UserID: "alice", Date: date, Step: domain.StepRiskScan, OptionID: "B", Confidence: 0.5},
		{UserID: "bob", Date: date, Step: domain.StepMarketOverview, OptionID: "B", Confidence: 0.8},
		{UserID: "bob", Date: date, Step: domain.StepRiskScan, OptionID: "A", Confidence: 0.6},
	}
	for _, req := range submissions {
		if _, err := service.Submit(ctx, req); err != nil {
			t.Fatalf("submit %s step %d: %v", req.UserID, req.Step, err)
		}
	}

	// Duplicate submissions are rejected without touching state.
	if _, err := service.Submit(ctx, submissions[0]); err != domain.ErrDuplicateSubmission {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	actual := domain.ActualSnapshot{
		Date:              date,
		LimitUpCount:      metric(60),
		RiskSectorChange:  metric(2),
		LeadSectorChange:  metric(1),
		LeadSectorInflow:  metric(15),
		EventSectorChange: metric(4),
		MarketStrength:    metric(30),
	}
	report, err := service.Verify(ctx, date, actual)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.Verified != 4 || report.State != domain.DateVerified {
		t.Fatalf("unexpected report: %+v", report)
	}

	alice, err := service.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if alice.User.TotalScore != 108 || alice.User.CorrectPredictions != 1 {
		t.Fatalf("unexpected alice stats: %+v", alice.User)
	}

	entries, err := service.Leaderboard(ctx, date, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "alice" || entries[1].UserID != "bob" {
		t.Fatalf("unexpected board: %+v", entries)
	}

	// The rebuilt board is served from redis.
	cached, ok, err := cache.Get(ctx, date)
	if err != nil || !ok {
		t.Fatalf("expected cached board, ok=%v err=%v", ok, err)
	}
	if len(cached) != 2 {
		t.Fatalf("unexpected cached board: %+v", cached)
	}

	// A second run over a verified date changes nothing.
	again, err := service.Verify(ctx, date, actual)
	if err != nil {
		t.Fatalf("re-verify: %v", err)
	}
	if again.Verified != 0 {
		t.Fatalf("expected no-op re-verify, got %+v", again)
	}
	alice, err = service.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if alice.User.TotalScore != 108 {
		t.Fatalf("re-verify must not double totals, got %d", alice.User.TotalScore)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
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
		Env:          map[string]string{"POSTGRES_USER": "game", "POSTGRES_PASSWORD": "gamepass", "POSTGRES_DB": "gamedb"},
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
	dsn := fmt.Sprintf("postgres://game:gamepass@%s:%s/gamedb?sslmode=disable", host, port.Port())
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
