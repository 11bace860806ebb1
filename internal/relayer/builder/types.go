package builder

import (
	"context"
	"math/big"

	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/signer"
)

// Builder assembles unsigned transactions against the current chain state. Every build reads
// the pending nonce afresh.
type Builder interface {
	// BuildValueTransfer sends amount wei to `to`. A nil gasPrice is replaced by the node's
	// suggestion, a zero gasLimit by 21000.
	BuildValueTransfer(ctx context.Context, chainID int64, to string, amount *big.Int, gasPrice *big.Int, gasLimit uint64) (*signer.UnsignedTransaction, error)
	BuildContractCall(ctx context.Context, chainID int64, contract string, call contracts.Call) (*signer.UnsignedTransaction, error)
}
