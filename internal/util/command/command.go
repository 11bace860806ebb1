package command

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/config"
)

const shutdownTimeout = 10 * time.Second

// NewSubcommandGroup returns a command that only groups subcommands and prints its help.
func NewSubcommandGroup(use string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s related subcommands", use),
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}

	cmd.AddCommand(subcommands...)

	return cmd
}

// SetupLogger applies the logger config to the global zerolog logger.
func SetupLogger(cfg config.LoggerServer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Level)
	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
		}))
	}
}

// WithServer initializes a server from config, runs f and shuts the server down again. The error
// returned by f is passed through.
func WithServer(ctx context.Context, config config.Server, f func(ctx context.Context, s *api.Server) error) error {
	SetupLogger(config.Logger)

	s, err := api.InitNewServer(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	start := s.Clock.Now()
	err = f(ctx, s)
	log.Debug().Dur("elapsed", s.Clock.Now().Sub(start)).Msg("Command finished")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
		log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
	}

	return err
}
