package tx

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/relayer"
)

func newSettle() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle <target> <expected-amount>",
		Short: "Checks that a cross-chain transfer arrived",
		Long: `Polls the settlement token balance of <target> on the destination chain until it
reaches <expected-amount>, given in 6 decimal token units, or the settlement timeout passes.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				expected, err := parseBigInt("expected amount", args[1])
				if err != nil {
					return nil, err
				}

				return s.Relayer.CheckCrossChainReceived(ctx, args[0], expected, chainID)
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Destination chain id, 0 for the home chain.")

	return cmd
}

func newFee() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee <target> <amount>",
		Short: "Quotes the native fee of a cross-chain transfer",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			contract, _ := cmd.Flags().GetString(contractFlag)
			src, _ := cmd.Flags().GetInt64("src")
			dst, _ := cmd.Flags().GetInt64("dst")

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				amount, err := parseBigInt("amount", args[1])
				if err != nil {
					return nil, err
				}

				return s.Relayer.EstimateFee(ctx, relayer.FeeRequest{
					Contract:           contract,
					SourceChainID:      src,
					DestinationChainID: dst,
					Amount:             amount,
					Target:             args[0],
				})
			})
		},
	}

	cmd.Flags().String(contractFlag, "", "Payment contract address on the source chain.")
	cmd.Flags().Int64("src", 0, "Source chain id, 0 for the home chain.")
	cmd.Flags().Int64("dst", 0, "Destination chain id.")
	_ = cmd.MarkFlagRequired(contractFlag)
	_ = cmd.MarkFlagRequired("dst")

	return cmd
}
