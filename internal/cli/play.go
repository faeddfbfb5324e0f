package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"chase-duel-service/internal/app"
	"chase-duel-service/internal/config"
	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/duel"
	"chase-duel-service/internal/infra/memory"
	pgloader "chase-duel-service/internal/infra/postgres"
)

// NewPlayCmd plays one duel in the terminal against the simulated chaser.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		mode   string
		tier   string
		quizID string
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a duel in the terminal",
		Long:  "Play a duel against the simulated chaser. Keys 1-4 answer, c continues, q quits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.SampleQuizzes())
			if cfg.Postgres.URL != "" {
				pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
				if err != nil {
					return err
				}
				defer pool.Close()
				loader = pgloader.NewQuizLoader(pool)
			}
			return play(ctx, cfg, loader, app.StartRequest{
				Mode:   domain.Mode(mode),
				QuizID: quizID,
				Tier:   domain.Tier(tier),
				Seed:   seed,
			}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.Alternating), "duel mode (alternating, catchup)")
	cmd.Flags().StringVar(&tier, "tier", string(domain.Medium), "chaser difficulty (easy, medium, hard)")
	cmd.Flags().StringVar(&quizID, "quiz", memory.SampleQuizID, "quiz to play; loaded from Postgres when configured")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for the simulated chaser; 0 picks one")
	return cmd
}

func play(ctx context.Context, cfg config.Config, loader memory.QuizLoader, req app.StartRequest, in io.Reader, out io.Writer) error {
	quizzes := memory.NewQuizRepository(loader, time.Hour)
	service := app.NewDuelService(memory.NewSessionStore(), quizzes, app.WithDefaults(serviceDefaults(cfg)))

	view, err := service.Start(ctx, req)
	if err != nil {
		return err
	}
	updates, cancel, err := service.Subscribe(ctx, view.ID)
	if err != nil {
		return err
	}
	defer cancel()

	go readCommands(ctx, service, view.ID, in)

	var last domain.Snapshot
	for snap := range updates {
		if snap.Phase != last.Phase || questionID(snap) != questionID(last) || snap.Thinking != last.Thinking {
			render(out, snap)
		}
		last = snap
	}
	if last.Outcome != nil {
		o := last.Outcome
		fmt.Fprintf(out, "\n%s wins (%s). contestant %d, chaser %d, pushbacks %d\n",
			o.Winner, o.Reason, o.ContestantScore, o.ChaserScore, o.Pushbacks)
	} else {
		fmt.Fprintln(out, "\nduel abandoned")
	}
	return nil
}

func readCommands(ctx context.Context, service *app.DuelService, duelID string, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var err error
		switch cmd := strings.TrimSpace(scanner.Text()); cmd {
		case "1", "2", "3", "4":
			err = service.SubmitAnswer(ctx, duelID, int(cmd[0]-'1'))
		case "c":
			err = service.Continue(ctx, duelID)
		case "q":
			_ = service.Exit(ctx, duelID)
			return
		}
		if errors.Is(err, domain.ErrDuelNotFound) {
			return
		}
	}
	_ = service.Exit(ctx, duelID)
}

func questionID(s domain.Snapshot) string {
	if s.Question == nil {
		return ""
	}
	return s.Question.ID
}

func render(out io.Writer, s domain.Snapshot) {
	fmt.Fprintf(out, "\n[%s] %s  you %ds (%d)  chaser %ds (%d)",
		s.Phase, s.ActiveSide, s.ContestantTimeRemaining, s.ContestantScore, s.ChaserTimeRemaining, s.ChaserScore)
	if s.Target != nil {
		fmt.Fprintf(out, "  target %d  pushbacks %d", *s.Target, s.Pushbacks)
	}
	fmt.Fprintln(out)
	if s.Thinking {
		fmt.Fprintln(out, "  the chaser is thinking...")
	}
	if s.Question != nil && s.Revealed == nil {
		fmt.Fprintf(out, "  %s\n", s.Question.Prompt)
		for i, opt := range s.Question.Options {
			fmt.Fprintf(out, "    %d) %s\n", i+1, opt)
		}
	}
	if s.Revealed != nil {
		fmt.Fprintf(out, "  correct answer: %d\n", *s.Revealed+1)
	}
	if s.Phase == string(duel.PhaseTransition) {
		fmt.Fprintln(out, "  press c to face the chaser")
	}
}
