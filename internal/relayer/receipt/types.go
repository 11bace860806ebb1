package receipt

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

const (
	DefaultTimeout      = 120 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Receipt is the normalized inclusion state of a transaction. Pending receipts carry no block
// number and no gas used.
type Receipt struct {
	TxHash        common.Hash `json:"tx_hash"`
	ChainID       int64       `json:"chain_id"`
	Status        Status      `json:"status"`
	BlockNumber   *uint64     `json:"block_number,omitempty"`
	GasUsed       *uint64     `json:"gas_used,omitempty"`
	Confirmations uint64      `json:"confirmations"`

	// Err is the last lookup failure seen while the receipt stayed pending. Error is its message.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r *Receipt) setErr(err error) {
	r.Err = err
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
}

type Tracker interface {
	// Await polls until the transaction is included or timeout elapses. Running out of time is
	// not an error; the receipt is returned as pending.
	Await(ctx context.Context, chainID int64, txHash string, timeout time.Duration) (*Receipt, error)
	// Status reads the current state once.
	Status(ctx context.Context, chainID int64, txHash string) (*Receipt, error)
}
