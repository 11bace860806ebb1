package tx

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/util/command"
)

const (
	chainFlag    = "chain"
	contractFlag = "contract"
	hashFlag     = "hash"
	amountFlag   = "amount"
	targetFlag   = "target"
	timeoutFlag  = "timeout"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("tx",
		newAddress(),
		newBalance(),
		newSend(),
		newCall(),
		newIntent(),
		newStatus(),
		newAwait(),
		newSettle(),
		newFee(),
		newComputeAddress(),
	)
}

// run executes f against a freshly initialized server and prints its result as JSON.
func run(cmd *cobra.Command, f func(ctx context.Context, s *api.Server) (interface{}, error)) {
	cfg := config.DefaultServiceConfigFromEnv()

	err := command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
		out, err := f(ctx, s)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", errs.Code(err), err)
		os.Exit(1)
	}
}

func parseBigInt(name string, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil //nolint:nilnil
	}

	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, errs.Newf(errs.ErrInvalidAmount, "invalid %s %q", name, value)
	}

	return v, nil
}
