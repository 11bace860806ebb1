package builder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/relayer/signer"
	"github/chapool/relayer/internal/util"
)

type service struct {
	registry chain.Registry
	from     common.Address
}

// NewService builds transactions sent from the given operator address.
//
//nolint:ireturn // Returning interface is intentional
func NewService(registry chain.Registry, from common.Address) Builder {
	return &service{registry: registry, from: from}
}

func (s *service) BuildValueTransfer(ctx context.Context, chainID int64, to string, amount *big.Int, gasPrice *big.Int, gasLimit uint64) (*signer.UnsignedTransaction, error) {
	if _, err := s.registry.Endpoint(chainID); err != nil {
		return nil, err
	}

	toAddress, err := contracts.ParseAddress(to)
	if err != nil {
		return nil, err
	}

	if amount == nil || amount.Sign() < 0 {
		return nil, errs.New(errs.ErrInvalidAmount, "amount must be a non-negative number of wei")
	}
	if gasLimit == 0 {
		gasLimit = contracts.GasLimitValueTransfer
	}

	tx, err := s.prepare(ctx, chainID, gasPrice)
	if err != nil {
		return nil, err
	}

	tx.To = &toAddress
	tx.Value = new(big.Int).Set(amount)
	tx.GasLimit = gasLimit

	return tx, nil
}

func (s *service) BuildContractCall(ctx context.Context, chainID int64, contract string, call contracts.Call) (*signer.UnsignedTransaction, error) {
	if _, err := s.registry.Endpoint(chainID); err != nil {
		return nil, err
	}

	contractAddress, err := contracts.ParseAddress(contract)
	if err != nil {
		return nil, err
	}

	data, err := call.Pack()
	if err != nil {
		return nil, err
	}

	value := new(big.Int)
	if call.Value != nil {
		if call.Value.Sign() < 0 {
			return nil, errs.New(errs.ErrInvalidAmount, "call value must not be negative")
		}
		value.Set(call.Value)
	}

	tx, err := s.prepare(ctx, chainID, nil)
	if err != nil {
		return nil, err
	}

	tx.To = &contractAddress
	tx.Value = value
	tx.Data = data
	tx.GasLimit = call.Function.GasLimit()
	tx.Function = call.Function

	util.LogFromContext(ctx).Debug().
		Int64("chain_id", chainID).
		Str("function", call.Function.String()).
		Uint64("nonce", *tx.Nonce).
		Msg("Built contract call")

	return tx, nil
}

// prepare resolves the chain and fills in nonce and gas price.
func (s *service) prepare(ctx context.Context, chainID int64, gasPrice *big.Int) (*signer.UnsignedTransaction, error) {
	client, err := s.registry.Resolve(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if gasPrice == nil {
		gasPrice, err = client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		gasPrice = new(big.Int).Set(gasPrice)
	}

	nonce, err := client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, err
	}

	return &signer.UnsignedTransaction{
		GasPrice: gasPrice,
		Nonce:    &nonce,
		ChainID:  chainID,
	}, nil
}
