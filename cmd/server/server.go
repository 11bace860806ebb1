package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/api/router"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/util/command"
	"golang.org/x/term"
)

const (
	probeFlag       = "probe"
	shutdownTimeout = 10 * time.Second
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Starts the management server",
		Long: `Starts the management server (health, readiness, metrics).

The operator key is loaded from ENV. If WALLET_KEYSTORE_FILE is set without
WALLET_KEYSTORE_PASSWORD, the password is read from the terminal.`,
		Run: func(cmd *cobra.Command, _ []string) {
			probe, _ := cmd.Flags().GetBool(probeFlag)
			runServer(probe)
		},
	}

	cmd.Flags().Bool(probeFlag, true, "Probe every configured chain before starting.")

	return cmd
}

func runServer(probe bool) {
	cfg := config.DefaultServiceConfigFromEnv()
	command.SetupLogger(cfg.Logger)

	if err := promptKeystorePassword(&cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to read keystore password")
	}

	s, err := api.InitNewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	if probe {
		probeChains(s)
	}

	router.Init(s)

	go func() {
		if err := s.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info().Msg("Server closed")
			} else {
				log.Fatal().Err(err).Msg("Failed to start server")
			}
		}
	}()

	log.Info().
		Str("address", s.Relayer.GetAddress().Hex()).
		Str("listen", cfg.Management.ListenAddress).
		Msg("Relayer started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		log.Fatal().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
	}
}

// probeChains refuses to start while a configured chain is unreachable.
func probeChains(s *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Management.ProbeTimeout)
	defer cancel()

	for _, r := range s.Chains.Probe(ctx) {
		if !r.Reachable {
			log.Fatal().Int64("chain_id", r.ChainID).Str("name", r.Name).Str("error", r.Error).Msg("Chain is unreachable")
		}
		log.Info().Int64("chain_id", r.ChainID).Str("name", r.Name).Uint64("latest_block", r.LatestBlock).Msg("Chain is reachable")
	}
}

func promptKeystorePassword(cfg *config.Server) error {
	if cfg.Wallet.KeystoreFile == "" || cfg.Wallet.KeystorePassword != "" {
		return nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		return errors.New("WALLET_KEYSTORE_PASSWORD is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Keystore password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return errors.Wrap(err, "failed to read password")
	}

	cfg.Wallet.KeystorePassword = string(password)

	return nil
}
