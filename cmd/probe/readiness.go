package probe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/util/command"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `Dials every configured chain and reads its latest block.
Exits with code 1 if a chain is unreachable.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			if err := runReadiness(cmd.Context(), verbose); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runReadiness(ctx context.Context, verbose bool) error {
	cfg := config.DefaultServiceConfigFromEnv()
	command.SetupLogger(cfg.Logger)

	m, err := metrics.New(cfg)
	if err != nil {
		return err
	}

	locker, err := api.NewNonceLocker(cfg)
	if err != nil {
		return errors.Wrap(err, "readiness probe failed")
	}
	if c, ok := locker.(io.Closer); ok {
		defer c.Close()
	}

	registry, err := api.NewChainRegistry(cfg, locker, m)
	if err != nil {
		return errors.Wrap(err, "readiness probe failed")
	}
	defer registry.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Management.ProbeTimeout)
	defer cancel()

	failed := 0
	for _, r := range registry.Probe(ctx) {
		if !r.Reachable {
			failed++
			fmt.Printf("%s (%d): unreachable: %s\n", r.Name, r.ChainID, r.Error)
			continue
		}
		if verbose {
			fmt.Printf("%s (%d): block %d\n", r.Name, r.ChainID, r.LatestBlock)
		}
	}

	if failed > 0 {
		return errors.Errorf("readiness probe failed: %d chain(s) unreachable", failed)
	}

	return nil
}
