package receipt

import (
	"context"
	"strings"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/util"
)

type Config struct {
	PollInterval time.Duration
	Clock        time2.Clock
}

type service struct {
	registry chain.Registry
	metrics  *metrics.Service
	poll     time.Duration
	clock    time2.Clock
}

//nolint:ireturn // Returning interface is intentional
func NewService(registry chain.Registry, m *metrics.Service, cfg Config) Tracker {
	s := &service{
		registry: registry,
		metrics:  m,
		poll:     cfg.PollInterval,
		clock:    cfg.Clock,
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	if s.clock == nil {
		s.clock = time2.DefaultClock
	}
	return s
}

// ParseHash accepts a 0x prefixed 32 byte hex transaction hash.
func ParseHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errs.Newf(errs.ErrInvalidTransactionID, "%q is not a transaction hash", s)
	}
	return common.BytesToHash(b), nil
}

func (s *service) Status(ctx context.Context, chainID int64, txHash string) (*Receipt, error) {
	hash, err := s.validate(chainID, txHash)
	if err != nil {
		return nil, err
	}

	r := s.read(ctx, chainID, hash)
	s.metrics.ObserveReceipt(chainID, string(r.Status))

	return r, nil
}

func (s *service) Await(ctx context.Context, chainID int64, txHash string, timeout time.Duration) (*Receipt, error) {
	hash, err := s.validate(chainID, txHash)
	if err != nil {
		return nil, err
	}
	if timeout < 0 {
		timeout = 0
	}

	logger := util.LogFromContext(ctx).With().
		Int64("chain_id", chainID).
		Str("tx_hash", hash.Hex()).
		Logger()

	deadline := s.clock.Now().Add(timeout)
	attempts := 0

	var r *Receipt
	for {
		attempts++
		r = s.read(ctx, chainID, hash)

		remaining := deadline.Sub(s.clock.Now())
		if r.Status != StatusPending || remaining <= 0 {
			break
		}

		if err := s.wait(ctx, min(s.poll, remaining)); err != nil {
			r.setErr(err)
			break
		}
	}

	event := logger.Debug()
	if r.Status == StatusPending {
		event = logger.Info().AnErr("last_error", r.Err)
	}
	event.
		Str("status", string(r.Status)).
		Int("attempts", attempts).
		Msg("Finished waiting for receipt")

	s.metrics.ObserveReceipt(chainID, string(r.Status))

	return r, nil
}

func (s *service) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "stopped waiting for receipt")
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "stopped waiting for receipt")
	case <-s.clock.After(d):
		return nil
	}
}

func (s *service) validate(chainID int64, txHash string) (common.Hash, error) {
	if _, err := s.registry.Endpoint(chainID); err != nil {
		return common.Hash{}, err
	}
	return ParseHash(txHash)
}

// read performs one lookup. Failures leave the receipt pending with Err set.
func (s *service) read(ctx context.Context, chainID int64, hash common.Hash) *Receipt {
	r := &Receipt{TxHash: hash, ChainID: chainID, Status: StatusPending}

	client, err := s.registry.Resolve(ctx, chainID)
	if err != nil {
		r.setErr(err)
		return r
	}

	raw, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			r.setErr(err)
		}
		return r
	}

	r.Status = StatusFailed
	if raw.Status == types.ReceiptStatusSuccessful {
		r.Status = StatusSuccess
	}
	block := raw.BlockNumber
	gasUsed := raw.GasUsed
	r.BlockNumber = &block
	r.GasUsed = &gasUsed

	latest, err := client.BlockNumber(ctx)
	if err != nil {
		util.LogFromContext(ctx).Debug().
			Int64("chain_id", chainID).
			Err(err).
			Msg("Failed to read latest block, reporting zero confirmations")
		return r
	}
	if latest > block {
		r.Confirmations = latest - block
	}

	return r
}
