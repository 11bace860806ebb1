package api

import (
	"context"
	"os"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer"
	"github/chapool/relayer/internal/relayer/builder"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/nonce"
	"github/chapool/relayer/internal/relayer/receipt"
	"github/chapool/relayer/internal/relayer/settlement"
	"github/chapool/relayer/internal/relayer/signer"
)

const (
	redisPingTimeout = 5 * time.Second
	redisDialTimeout = time.Second
	redisMaxRetries  = 1
)

//nolint:ireturn // Returning interface is intentional
func NewClock() time2.Clock {
	return time2.DefaultClock
}

// NewNonceLocker returns the submission lock backend selected by NONCE_LOCK_BACKEND.
//
//nolint:ireturn // Returning interface is intentional
func NewNonceLocker(cfg config.Server) (nonce.Locker, error) {
	switch cfg.NonceLock.Backend {
	case "", config.NonceLockLocal:
		return nonce.NewLocalLocker(), nil
	case config.NonceLockRedis:
	default:
		return nil, errors.Errorf("unknown nonce lock backend %q", cfg.NonceLock.Backend)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.NonceLock.RedisAddr,
		Password: cfg.NonceLock.RedisPassword,
		DB:       cfg.NonceLock.RedisDB,
		DialTimeout: redisDialTimeout,
		MaxRetries:  redisMaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.NonceLock.RedisAddr)
	}

	log.Info().Str("addr", cfg.NonceLock.RedisAddr).Msg("Using redis nonce lock")

	return nonce.NewRedisLocker(client, cfg.NonceLock.TTL), nil
}

//nolint:ireturn // Returning interface is intentional
func NewChainRegistry(cfg config.Server, locker nonce.Locker, m *metrics.Service) (chain.Registry, error) {
	endpoints := make([]chain.Endpoint, 0, len(cfg.Chains))

	for _, c := range cfg.Chains {
		ep := chain.Endpoint{
			ChainID:           c.ChainID,
			Name:              c.Name,
			RPCURLs:           c.RPCURLs,
			RequiresPOACompat: c.POA,
		}

		if c.TokenAddress != "" {
			token, err := contracts.ParseAddress(c.TokenAddress)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid token address of chain %d", c.ChainID)
			}
			ep.TokenAddress = &token
		}

		endpoints = append(endpoints, ep)
	}

	return chain.NewRegistry(endpoints, chain.Options{
		RateLimit: cfg.Relayer.RPCRateLimit,
		RateBurst: cfg.Relayer.RPCRateBurst,
		Locker:    locker,
		Metrics:   m,
	})
}

// NewSigner loads the operator key. A missing key is fatal for the server.
//
//nolint:ireturn // Returning interface is intentional
func NewSigner(cfg config.Server) (signer.Signer, error) {
	creds := signer.Credentials{
		PrivateKey:         cfg.Wallet.PrivateKey,
		Mnemonic:           cfg.Wallet.Mnemonic,
		MnemonicPassphrase: cfg.Wallet.MnemonicPassphrase,
		DerivationPath:     cfg.Wallet.DerivationPath,
		KeystorePassword:   cfg.Wallet.KeystorePassword,
	}

	if cfg.Wallet.KeystoreFile != "" {
		blob, err := os.ReadFile(cfg.Wallet.KeystoreFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read keystore file")
		}
		creds.KeystoreJSON = blob
	}

	s, err := signer.NewService(creds)
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", s.Address().Hex()).Msg("Loaded operator key")

	return s, nil
}

func NewRelayerConfig(cfg config.Server) (relayer.Config, error) {
	factory, err := contracts.ParseAddress(cfg.Contracts.FactoryAddress)
	if err != nil {
		return relayer.Config{}, errors.Wrap(err, "invalid FACTORY_ADDRESS")
	}
	operator, err := contracts.ParseAddress(cfg.Contracts.OperatorAddress)
	if err != nil {
		return relayer.Config{}, errors.Wrap(err, "invalid OPERATOR_ADDRESS")
	}

	if _, ok := cfg.Chain(cfg.Wallet.ChainID); !ok {
		return relayer.Config{}, errors.Errorf("home chain %d is not configured in CHAIN_IDS", cfg.Wallet.ChainID)
	}

	return relayer.Config{
		HomeChainID:            cfg.Wallet.ChainID,
		Factory:                factory,
		Operator:               operator,
		SettlementTimeout:      cfg.Relayer.SettlementTimeout,
		SettlementPollInterval: cfg.Relayer.SettlementPollInterval,
	}, nil
}

//nolint:ireturn // Returning interface is intentional
func NewBuilder(registry chain.Registry, s signer.Signer) builder.Builder {
	return builder.NewService(registry, s.Address())
}

//nolint:ireturn // Returning interface is intentional
func NewReceiptTracker(cfg config.Server, registry chain.Registry, m *metrics.Service, clock time2.Clock) receipt.Tracker {
	return receipt.NewService(registry, m, receipt.Config{
		PollInterval: cfg.Relayer.ReceiptPollInterval,
		Clock:        clock,
	})
}

//nolint:ireturn // Returning interface is intentional
func NewSettlementChecker(cfg config.Server, registry chain.Registry, m *metrics.Service, clock time2.Clock) settlement.Checker {
	return settlement.NewService(registry, m, settlement.Config{
		Clock:         clock,
	})
}
