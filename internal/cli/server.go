package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"review-game-service/internal/app"
	"review-game-service/internal/config"
	"review-game-service/internal/infra/memory"
	gamepg "review-game-service/internal/infra/postgres"
	gameredis "review-game-service/internal/infra/redis"
	"review-game-service/internal/provider"
	transport "review-game-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the review-game server",
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
	setupLogging(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting review-game service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService assembles the game service from config: postgres store
// when a URL is configured (in-memory otherwise), optional redis
// leaderboard cache, file-backed snapshot provider behind an LRU, and
// the decision rules with any configured overrides.
func buildService(ctx context.Context, cfg config.Config) (*app.GameService, func(), error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var store app.PredictionStore = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, pool.Close)
		store = gamepg.NewStore(pool)
	}

	var cache app.LeaderboardCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { _ = client.Close() })
		cache = gameredis.NewLeaderboardCache(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}

	snapshotDir := cfg.Provider.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = "snapshots"
	}
	src := provider.NewCached(
		provider.NewFileProvider(snapshotDir),
		cfg.Provider.CacheSize,
		config.TTLDuration(cfg.Provider.CacheTTL, time.Hour),
	)

	rules, err := buildRules(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return app.NewGameService(store, src, rules, cache), cleanup, nil
}

func buildRules(cfg config.Config) (app.RuleSet, error) {
	rules := app.DefaultRules()
	for step, rc := range cfg.Rules {
		if err := rules.Override(step, rc.Thresholds, rc.Options); err != nil {
			return nil, fmt.Errorf("rules override for step %d: %w", step, err)
		}
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
}
