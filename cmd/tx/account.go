package tx

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
)

func newAddress() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Prints the operator address",
		Run: func(cmd *cobra.Command, _ []string) {
			run(cmd, func(_ context.Context, s *api.Server) (interface{}, error) {
				return map[string]string{"address": s.Relayer.GetAddress().Hex()}, nil
			})
		},
	}
}

func newBalance() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Prints the operator's native balance",
		Run: func(cmd *cobra.Command, _ []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				return s.Relayer.GetBalance(ctx, chainID)
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Chain id, 0 for the home chain.")

	return cmd
}

func newComputeAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute-address <user>",
		Short: "Prints the payment contract address the factory assigns to a user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				addr, err := s.Relayer.ComputeContractAddress(ctx, args[0], chainID)
				if err != nil {
					return nil, err
				}

				return map[string]string{"user": args[0], "contract_address": addr.Hex()}, nil
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Chain id, 0 for the home chain.")

	return cmd
}
