package settlement

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/util"
)

type Config struct {
	Clock time2.Clock
}

type service struct {
	registry chain.Registry
	metrics  *metrics.Service
	clock    time2.Clock
}

//nolint:ireturn // Returning interface is intentional
func NewService(registry chain.Registry, m *metrics.Service, cfg Config) Checker {
	s := &service{
		registry: registry,
		metrics:  m,
		clock:    cfg.Clock,
	}
	if s.clock == nil {
		s.clock = time2.DefaultClock
	}
	return s
}

func (s *service) Await(ctx context.Context, req Request) (*Result, error) {
	ep, err := s.registry.Endpoint(req.DestinationChainID)
	if err != nil {
		return nil, err
	}
	if ep.TokenAddress == nil {
		return nil, errs.Newf(errs.ErrUnsupportedChain, "no token configured on chain %d", req.DestinationChainID)
	}

	target, err := contracts.ParseAddress(req.Target)
	if err != nil {
		return nil, err
	}

	if req.ExpectedAmount == nil || req.ExpectedAmount.Sign() < 0 {
		return nil, errs.New(errs.ErrInvalidAmount, "expected amount must be a non-negative integer")
	}

	logger := util.LogFromContext(ctx).With().
		Int64("chain_id", req.DestinationChainID).
		Str("address", target.Hex()).
		Logger()

	res := &Result{
		ExpectedBalance: decimal.NewFromBigInt(req.ExpectedAmount, -ExpectedScale),
		ChainID:         req.DestinationChainID,
		Address:         target,
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := s.clock.Now().Add(timeout)

	for {
		balance, err := s.balance(ctx, req.DestinationChainID, *ep.TokenAddress, target)
		res.setErr(err)
		if err == nil {
			res.CurrentBalance = balance
			res.Received = balance.GreaterThanOrEqual(res.ExpectedBalance)
		} else {
			res.CurrentBalance = decimal.Zero
			res.Received = false
		}

		remaining := deadline.Sub(s.clock.Now())
		if res.Received || req.PollInterval <= 0 || remaining <= 0 {
			break
		}

		if err := s.wait(ctx, min(req.PollInterval, remaining)); err != nil {
			res.setErr(err)
			break
		}
	}

	logger.Info().
		Bool("received", res.Received).
		Str("current_balance", res.CurrentBalance.String()).
		Str("expected_balance", res.ExpectedBalance.String()).
		AnErr("last_error", res.Err).
		Msg("Checked destination balance")

	s.metrics.ObserveSettlement(req.DestinationChainID, res.Received, res.Err)

	return res, nil
}

func (s *service) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "stopped waiting for settlement")
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "stopped waiting for settlement")
	case <-s.clock.After(d):
		return nil
	}
}

// balance reads balanceOf(target) scaled by the token's decimals.
func (s *service) balance(ctx context.Context, chainID int64, token common.Address, target common.Address) (decimal.Decimal, error) {
	client, err := s.registry.Resolve(ctx, chainID)
	if err != nil {
		return decimal.Zero, err
	}

	data, err := contracts.BalanceOf(target).Pack()
	if err != nil {
		return decimal.Zero, err
	}
	out, err := client.CallContract(ctx, token, data)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read token balance")
	}
	raw, err := contracts.UnpackBigInt(contracts.FunctionBalanceOf, out)
	if err != nil {
		return decimal.Zero, err
	}

	data, err = contracts.Decimals().Pack()
	if err != nil {
		return decimal.Zero, err
	}
	out, err = client.CallContract(ctx, token, data)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read token decimals")
	}
	decimals, err := contracts.UnpackDecimals(out)
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromBigInt(raw, -int32(decimals)), nil
}
