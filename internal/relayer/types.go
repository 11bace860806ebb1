package relayer

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/fee"
	"github/chapool/relayer/internal/relayer/receipt"
	"github/chapool/relayer/internal/relayer/settlement"
)

type TransferIntent = contracts.TransferIntent

// Config carries the values the relayer needs from the server configuration.
type Config struct {
	// HomeChainID is used whenever a caller passes chain id 0.
	HomeChainID int64
	Factory     common.Address
	Operator    common.Address

	SettlementTimeout      time.Duration
	SettlementPollInterval time.Duration
}

type Balance struct {
	ChainID int64          `json:"chain_id"`
	Address common.Address `json:"address"`
	Wei     *big.Int       `json:"wei"`
	Ether   string         `json:"ether"`
}

type ValueTransfer struct {
	ChainID int64
	To      string
	// AmountEther is a decimal ether amount such as "0.01".
	AmountEther string
	// GasPrice in wei, nil for the node's suggestion.
	GasPrice *big.Int
	// GasLimit of zero means 21000.
	GasLimit uint64
}

type ContractCall struct {
	ChainID  int64
	Contract string
	Function string
	Args     []string
	Value    *big.Int
}

type FeeRequest struct {
	Contract           string
	SourceChainID      int64
	DestinationChainID int64
	Amount             *big.Int
	Target             string
}

// Submission describes a transaction accepted into the node's pool.
type Submission struct {
	ChainID  int64          `json:"chain_id"`
	TxHash   common.Hash    `json:"tx_hash"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Nonce    uint64         `json:"nonce"`
	Function string         `json:"function,omitempty"`
	Value    *big.Int       `json:"value"`
	GasPrice *big.Int       `json:"gas_price"`
	GasLimit uint64         `json:"gas_limit"`
}

type Health struct {
	// Status is "healthy" when every configured chain answered, "degraded" otherwise.
	Status      string              `json:"status"`
	Address     common.Address      `json:"address"`
	HomeChainID int64               `json:"home_chain_id"`
	Chains      []chain.ProbeResult `json:"chains"`
}

// Service is the entry point of the relayer for the management server and the CLI.
type Service interface {
	// GetAddress returns the operator address.
	GetAddress() common.Address

	// GetBalance returns the operator's native balance on chainID.
	GetBalance(ctx context.Context, chainID int64) (*Balance, error)

	// SendValueTransfer signs and submits a native value transfer.
	SendValueTransfer(ctx context.Context, req ValueTransfer) (*Submission, error)

	// SendContractCall submits a call to one of the known contract functions with textual arguments.
	SendContractCall(ctx context.Context, req ContractCall) (*Submission, error)

	// CrossChainTransfer submits CrossChainTransfer on the first source chain of intent, paying
	// the intent's native fee.
	CrossChainTransfer(ctx context.Context, contract string, intent TransferIntent) (*Submission, error)

	// Transfer submits transfer on the first source chain of intent.
	Transfer(ctx context.Context, contract string, intent TransferIntent) (*Submission, error)

	// AwaitReceipt waits up to timeout for the transaction to be included.
	AwaitReceipt(ctx context.Context, chainID int64, txHash string, timeout time.Duration) (*receipt.Receipt, error)

	// TransactionStatus reads the inclusion state once.
	TransactionStatus(ctx context.Context, chainID int64, txHash string) (*receipt.Receipt, error)

	// CheckCrossChainReceived compares the target's token balance on the destination chain with
	// expected, given in 6 decimal token units.
	CheckCrossChainReceived(ctx context.Context, target string, expected *big.Int, dstChainID int64) (*settlement.Result, error)

	// EstimateFee quotes the native fee of a cross-chain transfer including the safety buffer.
	EstimateFee(ctx context.Context, req FeeRequest) (*fee.Estimate, error)

	// ComputeContractAddress returns the payment contract address the factory assigns to user.
	ComputeContractAddress(ctx context.Context, user string, chainID int64) (common.Address, error)

	// Health probes every configured chain.
	Health(ctx context.Context) *Health
}
