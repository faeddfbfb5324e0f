package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chase-duel-service/internal/app"
	"chase-duel-service/internal/config"
	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/infra/memory"
	"chase-duel-service/internal/infra/natsbus"
	pgloader "chase-duel-service/internal/infra/postgres"
	redisinfra "chase-duel-service/internal/infra/redis"
	transport "chase-duel-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the duel server",
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
	applyLogConfig(cfg)

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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.SampleQuizzes())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	defaults := serviceDefaults(cfg)
	var store app.SessionRepository
	if redisClient != nil {
		// Markers are refreshed every half idle timeout while a duel is active.
		store = redisinfra.NewSessionStore(redisClient, max(redisTTL, 2*defaults.IdleTimeout))
	} else {
		store = memory.NewSessionStore()
	}

	opts := []app.Option{app.WithDefaults(defaults)}
	if cfg.NATS.URL != "" {
		natsCfg := natsbus.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		if cfg.NATS.Subject != "" {
			natsCfg.Subject = cfg.NATS.Subject
		}
		publisher, err := natsbus.Connect(natsCfg)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, app.WithPublisher(publisher))
	}
	service := app.NewDuelService(store, quizRepo, opts...)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting duel service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func serviceDefaults(cfg config.Config) app.Defaults {
	alt, catchUp := cfg.ClockDefaults(domain.Alternating), cfg.ClockDefaults(domain.CatchUp)
	return app.Defaults{
		Alternating:   app.ClockSeconds{Contestant: alt.ContestantSeconds, Chaser: alt.ChaserSeconds},
		CatchUp:       app.ClockSeconds{Contestant: catchUp.ContestantSeconds, Chaser: catchUp.ChaserSeconds},
		FeedbackDelay: config.TTLDuration(cfg.Duel.FeedbackDelay, 0),
		ThinkDelay:    config.TTLDuration(cfg.Duel.ThinkDelay, 0),
		Profiles:      cfg.Profiles(),
		IdleTimeout:   config.TTLDuration(cfg.Duel.IdleTimeout, app.DefaultIdleTimeout),
	}
}
