package fee

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/util"
)

// The buffer is 20%, kept as the fraction 12/10 so the result stays exact.
var (
	bufferNumerator   = big.NewInt(12)
	bufferDenominator = big.NewInt(10)
)

// ApplyBuffer returns ceil(q * 1.2) computed on integers.
func ApplyBuffer(q *big.Int) *big.Int {
	out := new(big.Int).Mul(q, bufferNumerator)
	out.Add(out, new(big.Int).Sub(bufferDenominator, big.NewInt(1)))
	return out.Quo(out, bufferDenominator)
}

type service struct {
	registry chain.Registry
}

//nolint:ireturn // Returning interface is intentional
func NewService(registry chain.Registry) Estimator {
	return &service{registry: registry}
}

func (s *service) Quote(ctx context.Context, contract common.Address, srcChainID int64, dstChainID int64, amount *big.Int, target common.Address) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, errs.New(errs.ErrInvalidAmount, "amount must be a non-negative integer")
	}

	client, err := s.registry.Resolve(ctx, srcChainID)
	if err != nil {
		return nil, err
	}

	data, err := contracts.QuoteNativeFee(big.NewInt(dstChainID), amount, target).Pack()
	if err != nil {
		return nil, err
	}

	out, err := client.CallContract(ctx, contract, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to quote native fee on chain %d", srcChainID)
	}

	quote, err := contracts.UnpackBigInt(contracts.FunctionQuoteNativeFee, out)
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Debug().
		Int64("chain_id", srcChainID).
		Int64("dst_chain_id", dstChainID).
		Str("quote", quote.String()).
		Msg("Quoted native fee")

	return quote, nil
}

func (s *service) Estimate(ctx context.Context, contract common.Address, srcChainID int64, dstChainID int64, amount *big.Int, target common.Address) (*Estimate, error) {
	quote, err := s.Quote(ctx, contract, srcChainID, dstChainID, amount, target)
	if err != nil {
		return nil, err
	}

	return &Estimate{Quote: quote, Estimated: ApplyBuffer(quote)}, nil
}
