package tx

import (
	"context"
	"encoding/json"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/relayer"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/errs"
)

// intentFile is the JSON form of a transfer intent. Integers are decimal strings so that
// uint256 values survive any JSON tooling.
type intentFile struct {
	SourceChainIDs     []string      `json:"source_chain_ids"`
	AmountEach         []string      `json:"amount_each"`
	Nonces             []string      `json:"nonces"`
	Expiry             string        `json:"expiry"`
	DestinationChainID string        `json:"destination_chain_id"`
	TargetAddress      string        `json:"target_address"`
	Signature          hexutil.Bytes `json:"signature"`
	NativeFee          string        `json:"native_fee,omitempty"`
}

func newIntent() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intent <file>",
		Short: "Submits a signed transfer intent",
		Long: `Submits the transfer intent in <file> on its first source chain.

By default crossChainTransfer is called with the intent's native fee.
With --local, transfer is called instead.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			contract, _ := cmd.Flags().GetString(contractFlag)
			local, _ := cmd.Flags().GetBool("local")

			run(cmd, func(ctx context.Context, s *api.Server) (interface{}, error) {
				intent, err := readIntent(args[0])
				if err != nil {
					return nil, err
				}

				if local {
					return s.Relayer.Transfer(ctx, contract, *intent)
				}

				return s.Relayer.CrossChainTransfer(ctx, contract, *intent)
			})
		},
	}

	cmd.Flags().String(contractFlag, "", "Payment contract address.")
	cmd.Flags().Bool("local", false, "Call transfer instead of crossChainTransfer.")
	_ = cmd.MarkFlagRequired(contractFlag)

	return cmd
}

func readIntent(path string) (*relayer.TransferIntent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read intent file")
	}

	var f intentFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidIntent, err, "failed to decode intent file")
	}

	target, err := contracts.ParseAddress(f.TargetAddress)
	if err != nil {
		return nil, err
	}

	intent := &relayer.TransferIntent{
		TargetAddress: target,
		Signature:     f.Signature,
	}

	if intent.SourceChainIDs, err = parseList("source chain id", f.SourceChainIDs); err != nil {
		return nil, err
	}
	if intent.AmountEach, err = parseList("amount", f.AmountEach); err != nil {
		return nil, err
	}
	if intent.Nonces, err = parseList("nonce", f.Nonces); err != nil {
		return nil, err
	}
	if intent.Expiry, err = parseBigInt("expiry", f.Expiry); err != nil {
		return nil, err
	}
	if intent.DestinationChainID, err = parseBigInt("destination chain id", f.DestinationChainID); err != nil {
		return nil, err
	}
	if intent.NativeFee, err = parseBigInt("native fee", f.NativeFee); err != nil {
		return nil, err
	}

	return intent, nil
}

func parseList(name string, values []string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, err := parseBigInt(name, v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, nil
}
