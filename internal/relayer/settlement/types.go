package settlement

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	DefaultTimeout = 60 * time.Second
	// ExpectedScale is the fixed number of decimals of expected amounts (PYUSD units).
	ExpectedScale int32 = 6
)

type Request struct {
	Target             string
	ExpectedAmount     *big.Int
	DestinationChainID int64
	// Timeout bounds polling when PollInterval is set. Zero means DefaultTimeout.
	Timeout time.Duration
	// PollInterval of zero performs exactly one balance read.
	PollInterval time.Duration
}

// Result is a point in time view of the target's token balance on the destination chain.
type Result struct {
	Received        bool            `json:"received"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
	ChainID         int64           `json:"chain_id"`
	Address         common.Address  `json:"address"`

	// Err is set when the last balance read failed. Error is its message.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r *Result) setErr(err error) {
	r.Err = err
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
}

type Checker interface {
	Await(ctx context.Context, req Request) (*Result, error)
}
