package chain

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github/chapool/relayer/internal/relayer/errs"
)

// extraVanity is the length of the extraData prefix PoA chains keep in front of the signer seal.
const extraVanity = 32

func decodeHeaderStrict(msg json.RawMessage) (*Header, error) {
	var h types.Header
	if err := json.Unmarshal(msg, &h); err != nil {
		return nil, errs.Wrap(ErrMalformedResponse, err, "failed to decode header")
	}

	return &Header{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Time:       h.Time,
		Extra:      h.Extra,
		BaseFee:    h.BaseFee,
	}, nil
}

type lenientHeader struct {
	Number     *hexutil.Big   `json:"number"`
	Hash       *common.Hash   `json:"hash"`
	ParentHash common.Hash    `json:"parentHash"`
	Time       hexutil.Uint64 `json:"timestamp"`
	Extra      hexutil.Bytes  `json:"extraData"`
	BaseFee    *hexutil.Big   `json:"baseFeePerGas"`
}

// decodeHeaderLenient only insists on number and hash. extraData beyond the vanity prefix is
// returned as the seal.
func decodeHeaderLenient(msg json.RawMessage) (*Header, error) {
	var h lenientHeader
	if err := json.Unmarshal(msg, &h); err != nil {
		return nil, errs.Wrap(ErrMalformedResponse, err, "failed to decode header")
	}
	if h.Number == nil || h.Hash == nil {
		return nil, errs.New(ErrMalformedResponse, "header lacks number or hash")
	}

	out := &Header{
		Number:     h.Number.ToInt().Uint64(),
		Hash:       *h.Hash,
		ParentHash: h.ParentHash,
		Time:       uint64(h.Time),
		Extra:      h.Extra,
	}
	if len(h.Extra) > extraVanity {
		out.Extra = h.Extra[:extraVanity]
		out.Seal = h.Extra[extraVanity:]
	}
	if h.BaseFee != nil {
		out.BaseFee = h.BaseFee.ToInt()
	}

	return out, nil
}

func decodeReceiptStrict(msg json.RawMessage) (*TxReceipt, error) {
	var r types.Receipt
	if err := json.Unmarshal(msg, &r); err != nil {
		return nil, errs.Wrap(ErrMalformedResponse, err, "failed to decode receipt")
	}
	if r.BlockNumber == nil {
		return nil, errs.New(ErrMalformedResponse, "receipt lacks block number")
	}

	return &TxReceipt{
		TxHash:            r.TxHash,
		Status:            r.Status,
		BlockNumber:       r.BlockNumber.Uint64(),
		BlockHash:         r.BlockHash,
		GasUsed:           r.GasUsed,
		ContractAddress:   contractAddress(r.ContractAddress),
		EffectiveGasPrice: r.EffectiveGasPrice,
	}, nil
}

type lenientReceipt struct {
	TxHash            *common.Hash    `json:"transactionHash"`
	Status            *hexutil.Uint64 `json:"status"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	BlockHash         common.Hash     `json:"blockHash"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	ContractAddress   *common.Address `json:"contractAddress"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
}

func decodeReceiptLenient(msg json.RawMessage) (*TxReceipt, error) {
	var r lenientReceipt
	if err := json.Unmarshal(msg, &r); err != nil {
		return nil, errs.Wrap(ErrMalformedResponse, err, "failed to decode receipt")
	}
	if r.TxHash == nil || r.Status == nil || r.BlockNumber == nil {
		return nil, errs.New(ErrMalformedResponse, "receipt lacks hash, status or block number")
	}

	out := &TxReceipt{
		TxHash:      *r.TxHash,
		Status:      uint64(*r.Status),
		BlockNumber: r.BlockNumber.ToInt().Uint64(),
		BlockHash:   r.BlockHash,
		GasUsed:     uint64(r.GasUsed),
	}
	if r.ContractAddress != nil {
		out.ContractAddress = contractAddress(*r.ContractAddress)
	}
	if r.EffectiveGasPrice != nil {
		out.EffectiveGasPrice = r.EffectiveGasPrice.ToInt()
	}

	return out, nil
}

func contractAddress(addr common.Address) *common.Address {
	if addr == (common.Address{}) {
		return nil
	}
	return &addr
}
