package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/util/command"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `Checks that the operator key can be loaded and the nonce lock backend is reachable.
Exits with code 1 if a check fails.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			if err := runLiveness(verbose); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runLiveness(verbose bool) error {
	cfg := config.DefaultServiceConfigFromEnv()
	command.SetupLogger(cfg.Logger)

	s, err := api.NewSigner(cfg)
	if err != nil {
		return errors.Wrap(err, "liveness probe failed")
	}
	if verbose {
		fmt.Printf("Operator key loaded: %s\n", s.Address().Hex())
	}

	locker, err := api.NewNonceLocker(cfg)
	if err != nil {
		return errors.Wrap(err, "liveness probe failed")
	}
	if c, ok := locker.(io.Closer); ok {
		defer c.Close()
	}
	if verbose {
		fmt.Printf("Nonce lock backend reachable: %s\n", cfg.NonceLock.Backend)
	}

	return nil
}
