package migrations

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"chase-duel-service/internal/infra/memory"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for id, quiz := range memory.SampleQuizzes() {
				data, err := json.Marshal(quiz)
				if err != nil {
					return err
				}
				if _, err := db.ExecContext(ctx,
					`INSERT INTO quizzes (id, title, data) VALUES (?, ?, ?::jsonb) ON CONFLICT (id) DO NOTHING`,
					id, quiz.Title, string(data)); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			for id := range memory.SampleQuizzes() {
				if _, err := db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ?`, id); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
