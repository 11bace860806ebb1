package tx

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/relayer/receipt"
)

func newStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <tx-hash>",
		Short: "Reads the inclusion state of a transaction once",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				return s.Relayer.TransactionStatus(ctx, chainID, args[0])
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Chain id, 0 for the home chain.")

	return cmd
}

func newAwait() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "await <tx-hash>",
		Short: "Waits for a transaction to be included",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				return s.Relayer.AwaitReceipt(ctx, chainID, args[0], awaitTimeout(cmd, s.Config))
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Chain id, 0 for the home chain.")
	cmd.Flags().Duration(timeoutFlag, 0, "Maximum time to wait. Defaults to RECEIPT_TIMEOUT.")

	return cmd
}

// awaitTimeout prefers an explicit --timeout over RECEIPT_TIMEOUT.
func awaitTimeout(cmd *cobra.Command, cfg config.Server) time.Duration {
	if cmd.Flags().Changed(timeoutFlag) {
		timeout, _ := cmd.Flags().GetDuration(timeoutFlag)
		return timeout
	}
	if cfg.Relayer.ReceiptTimeout > 0 {
		return cfg.Relayer.ReceiptTimeout
	}

	return receipt.DefaultTimeout
}
