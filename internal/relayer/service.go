package relayer

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github/chapool/relayer/internal/relayer/builder"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/relayer/fee"
	"github/chapool/relayer/internal/relayer/receipt"
	"github/chapool/relayer/internal/relayer/settlement"
	"github/chapool/relayer/internal/relayer/signer"
	"github/chapool/relayer/internal/relayer/submit"
	"github/chapool/relayer/internal/util"
)

const etherDecimals = 18

type service struct {
	cfg         Config
	registry    chain.Registry
	signer      signer.Signer
	builder     builder.Builder
	submitter   submit.Submitter
	fees        fee.Estimator
	receipts    receipt.Tracker
	settlements settlement.Checker
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(
	cfg Config,
	registry chain.Registry,
	s signer.Signer,
	b builder.Builder,
	submitter submit.Submitter,
	fees fee.Estimator,
	receipts receipt.Tracker,
	settlements settlement.Checker,
) Service {
	return &service{
		cfg:         cfg,
		registry:    registry,
		signer:      s,
		builder:     b,
		submitter:   submitter,
		fees:        fees,
		receipts:    receipts,
		settlements: settlements,
	}
}

// ParseEther converts a decimal ether amount to wei without rounding.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidAmount, err, "%q is not a decimal amount", s)
	}
	if d.IsNegative() {
		return nil, errs.Newf(errs.ErrInvalidAmount, "amount %s is negative", s)
	}

	wei := d.Shift(etherDecimals)
	if !wei.IsInteger() {
		return nil, errs.Newf(errs.ErrInvalidAmount, "amount %s has more than %d decimals", s, etherDecimals)
	}

	return wei.BigInt(), nil
}

func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

// operation tags ctx with a fresh operation id.
func (s *service) operation(ctx context.Context, name string) (context.Context, *zerolog.Logger) {
	l := util.LogFromContext(ctx).With().
		Str("op_id", uuid.NewString()).
		Str("op", name).
		Logger()
	return util.WithLogger(ctx, l), &l
}

func (s *service) chainID(chainID int64) int64 {
	if chainID == 0 {
		return s.cfg.HomeChainID
	}
	return chainID
}

func (s *service) GetAddress() common.Address {
	return s.signer.Address()
}

func (s *service) GetBalance(ctx context.Context, chainID int64) (*Balance, error) {
	ctx, _ = s.operation(ctx, "get_balance")
	chainID = s.chainID(chainID)

	client, err := s.registry.Resolve(ctx, chainID)
	if err != nil {
		return nil, err
	}

	wei, err := client.BalanceAt(ctx, s.signer.Address())
	if err != nil {
		return nil, err
	}

	return &Balance{
		ChainID: chainID,
		Address: s.signer.Address(),
		Wei:     wei,
		Ether:   FormatEther(wei),
	}, nil
}

func (s *service) SendValueTransfer(ctx context.Context, req ValueTransfer) (*Submission, error) {
	ctx, log := s.operation(ctx, "send_value_transfer")
	chainID := s.chainID(req.ChainID)

	if _, err := s.registry.Endpoint(chainID); err != nil {
		return nil, err
	}
	amount, err := ParseEther(req.AmountEther)
	if err != nil {
		return nil, err
	}

	tx, err := s.builder.BuildValueTransfer(ctx, chainID, req.To, amount, req.GasPrice, req.GasLimit)
	if err != nil {
		return nil, err
	}

	sub, err := s.submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("chain_id", chainID).
		Str("tx_hash", sub.TxHash.Hex()).
		Str("amount_ether", FormatEther(amount)).
		Msg("Value transfer sent")

	return sub, nil
}

func (s *service) SendContractCall(ctx context.Context, req ContractCall) (*Submission, error) {
	ctx, _ = s.operation(ctx, "send_contract_call")

	call, err := contracts.ParseCall(req.Function, req.Args, req.Value)
	if err != nil {
		return nil, err
	}

	return s.sendCall(ctx, s.chainID(req.ChainID), req.Contract, call)
}

func (s *service) CrossChainTransfer(ctx context.Context, contract string, intent TransferIntent) (*Submission, error) {
	ctx, _ = s.operation(ctx, "cross_chain_transfer")

	validated, err := s.validateIntent(intent)
	if err != nil {
		return nil, err
	}

	return s.sendCall(ctx, validated.SourceChainID(), contract, contracts.CrossChainTransfer(validated))
}

func (s *service) Transfer(ctx context.Context, contract string, intent TransferIntent) (*Submission, error) {
	ctx, _ = s.operation(ctx, "transfer")

	validated, err := s.validateIntent(intent)
	if err != nil {
		return nil, err
	}

	return s.sendCall(ctx, validated.SourceChainID(), contract, contracts.Transfer(validated))
}

// validateIntent checks the intent's shape and its destination chain. The destination is part of
// the signed payload, so 0 is not mapped to the home chain here.
func (s *service) validateIntent(intent TransferIntent) (*contracts.TransferIntent, error) {
	validated, err := contracts.NewTransferIntent(intent)
	if err != nil {
		return nil, err
	}

	dst := validated.DestinationChainID
	if !dst.IsInt64() {
		return nil, errs.Newf(errs.ErrUnsupportedChain, "chain %s", dst)
	}
	if _, err := s.registry.Endpoint(dst.Int64()); err != nil {
		return nil, err
	}

	return validated, nil
}

func (s *service) sendCall(ctx context.Context, chainID int64, contract string, call contracts.Call) (*Submission, error) {
	log := util.LogFromContext(ctx)

	tx, err := s.builder.BuildContractCall(ctx, chainID, contract, call)
	if err != nil {
		return nil, err
	}

	sub, err := s.submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("chain_id", chainID).
		Str("tx_hash", sub.TxHash.Hex()).
		Str("function", call.Function.String()).
		Msg("Contract call sent")

	return sub, nil
}

func (s *service) submit(ctx context.Context, tx *signer.UnsignedTransaction) (*Submission, error) {
	signed, err := s.submitter.Submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	return &Submission{
		ChainID:  signed.ChainID,
		TxHash:   signed.Hash,
		From:     s.signer.Address(),
		To:       *signed.To,
		Nonce:    *signed.Nonce,
		Function: signed.Function.String(),
		Value:    signed.Value,
		GasPrice: signed.GasPrice,
		GasLimit: signed.GasLimit,
	}, nil
}

func (s *service) AwaitReceipt(ctx context.Context, chainID int64, txHash string, timeout time.Duration) (*receipt.Receipt, error) {
	ctx, _ = s.operation(ctx, "await_receipt")
	return s.receipts.Await(ctx, s.chainID(chainID), txHash, timeout)
}

func (s *service) TransactionStatus(ctx context.Context, chainID int64, txHash string) (*receipt.Receipt, error) {
	ctx, _ = s.operation(ctx, "transaction_status")
	return s.receipts.Status(ctx, s.chainID(chainID), txHash)
}

func (s *service) CheckCrossChainReceived(ctx context.Context, target string, expected *big.Int, dstChainID int64) (*settlement.Result, error) {
	ctx, _ = s.operation(ctx, "check_cross_chain_received")

	return s.settlements.Await(ctx, settlement.Request{
		Target:             target,
		ExpectedAmount:     expected,
		DestinationChainID: s.chainID(dstChainID),
		Timeout:            s.cfg.SettlementTimeout,
		PollInterval:       s.cfg.SettlementPollInterval,
	})
}

func (s *service) EstimateFee(ctx context.Context, req FeeRequest) (*fee.Estimate, error) {
	ctx, log := s.operation(ctx, "estimate_fee")
	srcChainID := s.chainID(req.SourceChainID)
	dstChainID := s.chainID(req.DestinationChainID)

	if _, err := s.registry.Endpoint(srcChainID); err != nil {
		return nil, err
	}
	if _, err := s.registry.Endpoint(dstChainID); err != nil {
		return nil, err
	}
	contract, err := contracts.ParseAddress(req.Contract)
	if err != nil {
		return nil, err
	}
	target, err := contracts.ParseAddress(req.Target)
	if err != nil {
		return nil, err
	}

	estimate, err := s.fees.Estimate(ctx, contract, srcChainID, dstChainID, req.Amount, target)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("chain_id", srcChainID).
		Str("quote", estimate.Quote.String()).
		Str("estimated", estimate.Estimated.String()).
		Msg("Estimated native fee")

	return estimate, nil
}

func (s *service) ComputeContractAddress(ctx context.Context, user string, chainID int64) (common.Address, error) {
	ctx, _ = s.operation(ctx, "compute_contract_address")
	chainID = s.chainID(chainID)

	if _, err := s.registry.Endpoint(chainID); err != nil {
		return common.Address{}, err
	}
	owner, err := contracts.ParseAddress(user)
	if err != nil {
		return common.Address{}, err
	}

	client, err := s.registry.Resolve(ctx, chainID)
	if err != nil {
		return common.Address{}, err
	}

	data, err := contracts.ComputeAddress(big.NewInt(0), owner, s.cfg.Operator).Pack()
	if err != nil {
		return common.Address{}, err
	}
	out, err := client.CallContract(ctx, s.cfg.Factory, data)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to compute contract address on chain %d", chainID)
	}

	return contracts.UnpackAddress(contracts.FunctionComputeAddress, out)
}

func (s *service) Health(ctx context.Context) *Health {
	ctx, _ = s.operation(ctx, "health")

	h := &Health{
		Status:      "healthy",
		Address:     s.signer.Address(),
		HomeChainID: s.cfg.HomeChainID,
		Chains:      s.registry.Probe(ctx),
	}
	for _, c := range h.Chains {
		if !c.Reachable {
			h.Status = "degraded"
		}
	}

	return h
}
