package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/nonce"
)

// Endpoint is the static description of one EVM chain.
type Endpoint struct {
	ChainID int64
	Name    string
	// RPCURLs are tried in order; later URLs are fallbacks.
	RPCURLs           []string
	RequiresPOACompat bool
	// TokenAddress is the settlement token on this chain, nil if none is deployed.
	TokenAddress *common.Address
}

// Options tune every client handed out by a registry.
type Options struct {
	// RateLimit is the per chain request rate in calls per second. 0 disables limiting.
	RateLimit float64
	RateBurst int
	// Locker serialises submissions. Defaults to an in-process locker.
	Locker  nonce.Locker
	Metrics *metrics.Service
}

// Header is the subset of a block header the relayer reads.
type Header struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Time       uint64
	// Extra is the vanity part of extraData, Seal the PoA signer seal split off behind it.
	Extra   []byte
	Seal    []byte
	BaseFee *big.Int
}

// TxReceipt is the subset of a transaction receipt the relayer reads.
type TxReceipt struct {
	TxHash            common.Hash
	Status            uint64
	BlockNumber       uint64
	BlockHash         common.Hash
	GasUsed           uint64
	ContractAddress   *common.Address
	EffectiveGasPrice *big.Int
}

type ProbeResult struct {
	ChainID     int64  `json:"chain_id"`
	Name        string `json:"name"`
	Reachable   bool   `json:"reachable"`
	LatestBlock uint64 `json:"latest_block,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Registry owns the configured endpoints and the live clients built from them.
type Registry interface {
	// Resolve returns the live client for chainID, dialing and probing it on first use.
	Resolve(ctx context.Context, chainID int64) (*Client, error)
	Endpoint(chainID int64) (Endpoint, error)
	// ChainIDs lists the configured chains in configuration order.
	ChainIDs() []int64
	// Probe resolves every configured chain and reads its latest header.
	Probe(ctx context.Context) []ProbeResult
	Close()
}
