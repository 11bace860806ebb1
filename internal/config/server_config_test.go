package config_test

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "0xdeadbeef")

	cfg := config.DefaultServiceConfigFromEnv()
	b, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)

	assert.NotContains(t, string(b), "deadbeef")
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

func TestDefaultChains(t *testing.T) {
	t.Setenv("ALCHEMY_API_KEY_ETHEREUM", "")
	t.Setenv("ALCHEMY_API_KEY_ARBITRUM", "")

	cfg := config.DefaultServiceConfigFromEnv()

	require.Len(t, cfg.Chains, 2)

	eth, ok := cfg.Chain(config.ChainIDEthereum)
	require.True(t, ok)
	assert.Equal(t, "ethereum", eth.Name)
	assert.Equal(t, []string{"https://eth.llamarpc.com"}, eth.RPCURLs)
	assert.Equal(t, "0x6c3ea9036406852006290770BEdFcAbA0e23A0e8", eth.TokenAddress)
	assert.True(t, eth.POA)

	arb, ok := cfg.Chain(config.ChainIDArbitrum)
	require.True(t, ok)
	assert.Equal(t, []string{"https://arb1.arbitrum.io/rpc"}, arb.RPCURLs)

	_, ok = cfg.Chain(5)
	assert.False(t, ok)

	assert.Equal(t, ":5002", cfg.Management.ListenAddress)
	assert.Equal(t, config.ChainIDEthereum, cfg.Wallet.ChainID)
	assert.Equal(t, 120*time.Second, cfg.Relayer.ReceiptTimeout)
	assert.Equal(t, 2*time.Second, cfg.Relayer.ReceiptPollInterval)
	assert.Equal(t, 60*time.Second, cfg.Relayer.SettlementTimeout)
	assert.Equal(t, time.Duration(0), cfg.Relayer.SettlementPollInterval)
	assert.Equal(t, config.NonceLockLocal, cfg.NonceLock.Backend)
	assert.Equal(t, "0x6D8913325322690F40e45b38BC039c9F76672fc0", cfg.Contracts.FactoryAddress)
}

func TestAlchemyKeyBuildsURL(t *testing.T) {
	t.Setenv("ALCHEMY_API_KEY_ETHEREUM", "k1")
	t.Setenv("ALCHEMY_API_KEY_ARBITRUM", "k2")

	cfg := config.DefaultServiceConfigFromEnv()

	eth, _ := cfg.Chain(config.ChainIDEthereum)
	arb, _ := cfg.Chain(config.ChainIDArbitrum)
	assert.Equal(t, []string{"https://eth-mainnet.g.alchemy.com/v2/k1"}, eth.RPCURLs)
	assert.Equal(t, []string{"https://arb-mainnet.g.alchemy.com/v2/k2"}, arb.RPCURLs)
}

func TestCustomChain(t *testing.T) {
	t.Setenv("CHAIN_IDS", "31337")
	t.Setenv("CHAIN_31337_RPC_URLS", "http://127.0.0.1:8545, http://127.0.0.1:8546,")
	t.Setenv("CHAIN_31337_POA", "false")
	t.Setenv("CHAIN_31337_TOKEN_ADDRESS", "0x0000000000000000000000000000000000000001")
	t.Setenv("SERVER_LOGGER_LEVEL", "debug")
	t.Setenv("RECEIPT_TIMEOUT", "5s")

	cfg := config.ServiceConfigFromViper(newEnvViperWithDefaults(t))

	require.Len(t, cfg.Chains, 1)
	c := cfg.Chains[0]
	assert.Equal(t, int64(31337), c.ChainID)
	assert.Equal(t, "31337", c.Name)
	assert.Equal(t, []string{"http://127.0.0.1:8545", "http://127.0.0.1:8546"}, c.RPCURLs)
	assert.False(t, c.POA)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", c.TokenAddress)
	assert.Equal(t, zerolog.DebugLevel, cfg.Logger.Level)
	assert.Equal(t, 5*time.Second, cfg.Relayer.ReceiptTimeout)
}

func newEnvViperWithDefaults(t *testing.T) *viper.Viper {
	t.Helper()

	v := newEnvViper()
	v.SetDefault("SERVER_LOGGER_LEVEL", "info")
	v.SetDefault("CHAIN_IDS", "1")
	return v
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RELAYER_CONFIG_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RELAYER_CONFIG_TEST_VALUE") })

	require.NoError(t, config.LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("RELAYER_CONFIG_TEST_VALUE"))

	// a regular file used as directory is an error, not a missing file
	err := config.LoadEnvFile(filepath.Join(path, "nested.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat env file")
	var pathErr *fs.PathError
	assert.True(t, errors.As(errors.Cause(err), &pathErr))
}

func TestGetFormattedBuildArgs(t *testing.T) {
	assert.Equal(t, "build.local/misses/ldflags @ < 40 chars git commit hash via ldflags > (1970-01-01T00:00:00+00:00)", config.GetFormattedBuildArgs())
}
