package submit

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/relayer/signer"
	"github/chapool/relayer/internal/util"
)

// Node messages meaning the nonce was already used or is in use.
var nonceConflictMessages = []string{
	"nonce too low",
	"already known",
	"replacement transaction underpriced",
}

type service struct {
	registry chain.Registry
	signer   signer.Signer
	metrics  *metrics.Service
}

//nolint:ireturn // Returning interface is intentional
func NewService(registry chain.Registry, s signer.Signer, m *metrics.Service) Submitter {
	return &service{registry: registry, signer: s, metrics: m}
}

func (s *service) Submit(ctx context.Context, tx *signer.UnsignedTransaction) (*signer.SignedTransaction, error) {
	if tx == nil {
		return nil, errs.New(errs.ErrInvalidTransaction, "transaction is nil")
	}

	signed, err := s.submit(ctx, tx)

	function := tx.Function.String()
	if function == "" {
		function = "value_transfer"
	}
	s.metrics.ObserveSubmission(tx.ChainID, function, err)

	return signed, err
}

func (s *service) submit(ctx context.Context, tx *signer.UnsignedTransaction) (*signer.SignedTransaction, error) {
	logger := util.LogFromContext(ctx)

	client, err := s.registry.Resolve(ctx, tx.ChainID)
	if err != nil {
		return nil, err
	}

	// Nonce read, signing and broadcast form one critical section per chain and address.
	unlock, err := client.LockSubmissions(ctx, s.signer.Address())
	if err != nil {
		return nil, err
	}
	defer unlock()

	nonce, err := client.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return nil, err
	}

	current := *tx
	if tx.Nonce == nil || *tx.Nonce != nonce {
		logger.Debug().
			Int64("chain_id", tx.ChainID).
			Uint64("nonce", nonce).
			Msg("Using refreshed pending nonce")
	}
	current.Nonce = &nonce

	signed, err := s.signer.Sign(&current)
	if err != nil {
		return nil, err
	}

	hash, err := client.SendRawTransaction(ctx, signed.Raw)
	if err != nil {
		err = classify(err)
		logger.Warn().
			Int64("chain_id", tx.ChainID).
			Str("tx_hash", signed.Hash.Hex()).
			Uint64("nonce", nonce).
			Err(err).
			Msg("Transaction submission failed")
		return nil, err
	}

	if hash != signed.Hash {
		logger.Warn().
			Int64("chain_id", tx.ChainID).
			Str("tx_hash", signed.Hash.Hex()).
			Str("node_tx_hash", hash.Hex()).
			Msg("Node reported a different transaction hash")
	}

	logger.Info().
		Int64("chain_id", tx.ChainID).
		Str("tx_hash", signed.Hash.Hex()).
		Uint64("nonce", nonce).
		Str("function", tx.Function.String()).
		Msg("Transaction submitted")

	return signed, nil
}

func classify(err error) error {
	if errors.Is(err, errs.ErrConnectivity) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, m := range nonceConflictMessages {
		if strings.Contains(msg, m) {
			return errs.Wrap(errs.ErrNonceConflict, err, "node rejected nonce")
		}
	}

	return errs.Wrap(errs.ErrSubmissionRejected, err, "node rejected transaction")
}
