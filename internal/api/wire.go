//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer"
	"github/chapool/relayer/internal/relayer/fee"
	"github/chapool/relayer/internal/relayer/submit"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewClock,
	metrics.New,
	NewNonceLocker,
	NewChainRegistry,
	NewSigner,
	relayerSet,
)

var relayerSet = wire.NewSet(
	NewRelayerConfig,
	NewBuilder,
	NewReceiptTracker,
	NewSettlementChecker,
	submit.NewService,
	fee.NewService,
	relayer.NewService,
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
