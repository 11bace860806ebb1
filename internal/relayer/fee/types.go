package fee

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Estimate is a native fee quote plus the safety buffer applied before submission.
type Estimate struct {
	Quote     *big.Int `json:"quote"`
	Estimated *big.Int `json:"estimated"`
}

type Estimator interface {
	// Quote reads quoteNativeFee on the source chain.
	Quote(ctx context.Context, contract common.Address, srcChainID int64, dstChainID int64, amount *big.Int, target common.Address) (*big.Int, error)
	// Estimate is Quote with ApplyBuffer applied.
	Estimate(ctx context.Context, contract common.Address, srcChainID int64, dstChainID int64, amount *big.Int, target common.Address) (*Estimate, error)
}
