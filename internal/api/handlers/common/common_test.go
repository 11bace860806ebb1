package common_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/test"
)

func TestGetHealthy(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		require.Equal(t, "Healthy.", res.Body.String())
	})
}

func TestGetReadyReadiness(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		require.Equal(t, "Ready.", res.Body.String())
	})
}

func TestGetReadyReadinessBroken(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		// forcefully remove an initialized component to check if ready state works
		s.Signer = nil

		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Not ready.", res.Body.String())
	})
}

func TestGetReadyChainDownNotReady(t *testing.T) {
	cfg, chains := test.NewTestServerConfig(t)
	chains[config.ChainIDArbitrum].SetDown(true)

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Not ready.", res.Body.String())
	})
}

func TestGetHealth(t *testing.T) {
	cfg, chains := test.NewTestServerConfig(t)
	chains[config.ChainIDArbitrum].SetDown(true)

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/health", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var body struct {
			Status      string `json:"status"`
			Address     string `json:"address"`
			HomeChainID int64  `json:"home_chain_id"`
			Chains      []struct {
				ChainID   int64 `json:"chain_id"`
				Reachable bool  `json:"reachable"`
			} `json:"chains"`
		}
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))

		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, common.HexToAddress(test.OperatorAddress), common.HexToAddress(body.Address))
		assert.Equal(t, config.ChainIDEthereum, body.HomeChainID)
		require.Len(t, body.Chains, 2)
		assert.True(t, body.Chains[0].Reachable)
		assert.False(t, body.Chains[1].Reachable)
	})
}

func TestGetVersion(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/version", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		assert.Equal(t, config.GetFormattedBuildArgs(), res.Body.String())
	})
}

func TestGetMetrics(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		_ = test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)

		res := test.PerformRequest(t, s, "GET", "/metrics", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		assert.Contains(t, res.Body.String(), `relayer_chain_reachable{chain_id="1"} 1`)
		assert.Contains(t, res.Body.String(), "relayer_rpc_calls_total")
	})
}

func TestNotFoundIsJSON(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/nope", nil, nil)
		require.Equal(t, http.StatusNotFound, res.Result().StatusCode)
		assert.JSONEq(t, `{"status":404,"type":"GENERIC","title":"Not Found"}`, res.Body.String())
	})
}
