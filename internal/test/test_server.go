package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/api/router"
	"github/chapool/relayer/internal/config"
)

const (
	// OperatorKey is the well known test key used by test servers.
	OperatorKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	OperatorAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

// TestChains are the fake chains behind a test server config, keyed by chain id.
type TestChains map[int64]*FakeChain

// NewTestServerConfig returns the default config pointed at fresh fake ethereum and arbitrum
// chains, signing with OperatorKey.
func NewTestServerConfig(t *testing.T) (config.Server, TestChains) {
	t.Helper()

	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Logger.Level = zerolog.DebugLevel
	cfg.Logger.PrettyPrintConsole = false

	chains := TestChains{}
	cfg.Chains = nil
	for _, id := range []int64{config.ChainIDEthereum, config.ChainIDArbitrum} {
		fake := NewFakeChain(t, id)
		chains[id] = fake
		cfg.Chains = append(cfg.Chains, config.Chain{
			ChainID: id,
			Name:    map[int64]string{config.ChainIDEthereum: "ethereum", config.ChainIDArbitrum: "arbitrum"}[id],
			RPCURLs: []string{fake.URL()},
			POA:     true,
		})
	}

	cfg.Wallet = config.Wallet{
		ChainID:    config.ChainIDEthereum,
		PrivateKey: OperatorKey,
	}
	cfg.NonceLock.Backend = config.NonceLockLocal
	cfg.Management.ProbeTimeout = 2 * time.Second

	return cfg, chains
}

// WithTestServer runs closure against a fully wired server backed by fake chains.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	cfg, _ := NewTestServerConfig(t)
	WithTestServerConfigurable(t, cfg, closure)
}

func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server)) {
	t.Helper()

	zerolog.SetGlobalLevel(cfg.Logger.Level)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		t.Fatalf("failed to init server: %v", err)
	}

	router.Init(s)

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		t.Fatalf("failed to shutdown server: %v", errs)
	}
}

// PerformRequest serves one request against s.Echo without opening a socket. body is encoded
// as JSON unless it is nil.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body interface{}, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}
