package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/config"
)

// setupLogging configures the global zerolog logger. An empty or unknown
// level means info.
func setupLogging(level string, pretty bool) {
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// applyLogConfig lets the config file set logging when no flag did.
func applyLogConfig(cfg config.Config) {
	level, pretty := logLevel, logPretty
	if level == "" {
		level = cfg.Log.Level
	}
	if !pretty {
		pretty = cfg.Log.Pretty
	}
	setupLogging(level, pretty)
}
