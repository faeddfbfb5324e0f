package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chase-duel-service/internal/config"
	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/infra/memory"
	pgloader "chase-duel-service/internal/infra/postgres"
	redisinfra "chase-duel-service/internal/infra/redis"
)

type quizSaver interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// NewImportCmd stores quizzes from a JSON file in the question bank.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import quizzes from a JSON file (one quiz or an array)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			applyLogConfig(cfg)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			var invalidate func(ctx context.Context, quizID string) error
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache := redisinfra.NewQuizRepository(client, nil, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
				invalidate = cache.Invalidate
			}

			ids, err := importQuizzes(ctx, f, pgloader.NewQuizLoader(pool), invalidate)
			if err != nil {
				return err
			}
			log.Info().Strs("quiz_ids", ids).Msg("quizzes imported")
			return nil
		},
	}
}

// importQuizzes validates every quiz in r before saving any of them. A stale
// cache entry only costs a warning.
func importQuizzes(ctx context.Context, r io.Reader, saver quizSaver, invalidate func(ctx context.Context, quizID string) error) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read quizzes: %w", err)
	}
	var quizzes []domain.Quiz
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &quizzes)
	} else {
		var quiz domain.Quiz
		err = json.Unmarshal(trimmed, &quiz)
		quizzes = append(quizzes, quiz)
	}
	if err != nil {
		return nil, fmt.Errorf("decode quizzes: %w", err)
	}

	for _, quiz := range quizzes {
		if quiz.ID == "" {
			return nil, fmt.Errorf("%w: quiz without id", domain.ErrInvalidConfig)
		}
		if err := memory.ValidateQuiz(quiz); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(quizzes))
	for _, quiz := range quizzes {
		if err := saver.SaveQuiz(ctx, quiz); err != nil {
			return ids, fmt.Errorf("import quiz %s: %w", quiz.ID, err)
		}
		if invalidate != nil {
			if err := invalidate(ctx, quiz.ID); err != nil {
				log.Warn().Err(err).Str("quiz_id", quiz.ID).Msg("invalidate cached quiz failed")
			}
		}
		ids = append(ids, quiz.ID)
	}
	return ids, nil
}
