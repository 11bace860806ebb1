package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/relayer/internal/relayer/errs"
)

// TransferIntent is a user signed cross-chain payment authorisation. SourceChainIDs, AmountEach
// and Nonces are aligned by index. The first source chain routes the transaction.
type TransferIntent struct {
	SourceChainIDs     []*big.Int
	AmountEach         []*big.Int
	Nonces             []*big.Int
	Expiry             *big.Int
	DestinationChainID *big.Int
	TargetAddress      common.Address
	Signature          []byte
	// NativeFee is only used by CrossChainTransfer; nil means zero.
	NativeFee *big.Int
}

// NewTransferIntent validates the shape of in and returns a copy of it.
func NewTransferIntent(in TransferIntent) (*TransferIntent, error) {
	if len(in.SourceChainIDs) == 0 {
		return nil, errs.New(errs.ErrInvalidIntent, "source chain ids must not be empty")
	}
	if len(in.AmountEach) != len(in.SourceChainIDs) || len(in.Nonces) != len(in.SourceChainIDs) {
		return nil, errs.Newf(errs.ErrInvalidIntent, "sequence lengths differ: %d source chains, %d amounts, %d nonces",
			len(in.SourceChainIDs), len(in.AmountEach), len(in.Nonces))
	}

	for i := range in.SourceChainIDs {
		if !isUint256(in.SourceChainIDs[i]) || !isUint256(in.AmountEach[i]) || !isUint256(in.Nonces[i]) {
			return nil, errs.Newf(errs.ErrInvalidIntent, "entry %d is not a uint256 triple", i)
		}
	}
	if !in.SourceChainIDs[0].IsInt64() || in.SourceChainIDs[0].Sign() == 0 {
		return nil, errs.Newf(errs.ErrInvalidIntent, "source chain id %s out of range", in.SourceChainIDs[0])
	}
	if !isUint256(in.Expiry) || !isUint256(in.DestinationChainID) {
		return nil, errs.New(errs.ErrInvalidIntent, "expiry and destination chain id are required")
	}
	if in.NativeFee != nil && !isUint256(in.NativeFee) {
		return nil, errs.New(errs.ErrInvalidIntent, "native fee out of range")
	}

	out := in
	out.SourceChainIDs = append([]*big.Int(nil), in.SourceChainIDs...)
	out.AmountEach = append([]*big.Int(nil), in.AmountEach...)
	out.Nonces = append([]*big.Int(nil), in.Nonces...)
	out.Signature = append([]byte(nil), in.Signature...)

	return &out, nil
}

// SourceChainID is the chain the intent's transaction is sent to.
func (i *TransferIntent) SourceChainID() int64 {
	return i.SourceChainIDs[0].Int64()
}

func (i *TransferIntent) nativeFee() *big.Int {
	if i.NativeFee == nil {
		return new(big.Int)
	}
	return i.NativeFee
}

func isUint256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.BitLen() <= 256
}
