package tx

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/relayer"
)

func newSend() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <to> <amount-ether>",
		Short: "Sends native value to an address",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)
			rawGasPrice, _ := cmd.Flags().GetString("gas-price")
			gasLimit, _ := cmd.Flags().GetUint64("gas-limit")

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				gasPrice, err := parseBigInt("gas price", rawGasPrice)
				if err != nil {
					return nil, err
				}

				return s.Relayer.SendValueTransfer(ctx, relayer.ValueTransfer{
					ChainID:     chainID,
					To:          args[0],
					AmountEther: args[1],
					GasPrice:    gasPrice,
					GasLimit:    gasLimit,
				})
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Chain id, 0 for the home chain.")
	cmd.Flags().String("gas-price", "", "Gas price in wei, defaults to the node's suggestion.")
	cmd.Flags().Uint64("gas-limit", 0, "Gas limit, defaults to 21000.")

	return cmd
}

func newCall() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <function> [args...]",
		Short: "Calls a known payment contract function",
		Long: `Calls one of the known payment contract functions with textual arguments.

Addresses are hex, integers decimal and byte arguments 0x prefixed hex.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			chainID, _ := cmd.Flags().GetInt64(chainFlag)
			contract, _ := cmd.Flags().GetString(contractFlag)
			rawValue, _ := cmd.Flags().GetString("value")

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				value, err := parseBigInt("value", rawValue)
				if err != nil {
					return nil, err
				}

				return s.Relayer.SendContractCall(ctx, relayer.ContractCall{
					ChainID:  chainID,
					Contract: contract,
					Function: args[0],
					Args:     args[1:],
					Value:    value,
				})
			})
		},
	}

	cmd.Flags().Int64(chainFlag, 0, "Chain id, 0 for the home chain.")
	cmd.Flags().String(contractFlag, "", "Contract address.")
	cmd.Flags().String("value", "", "Native value in wei sent along with the call.")
	_ = cmd.MarkFlagRequired(contractFlag)

	return cmd
}
