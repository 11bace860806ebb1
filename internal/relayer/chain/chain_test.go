package chain_test

import (
	"context"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/test"
)

var holder = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func newRegistry(t *testing.T, opts chain.Options, endpoints ...chain.Endpoint) chain.Registry {
	t.Helper()

	r, err := chain.NewRegistry(endpoints, opts)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

func TestNewRegistryValidates(t *testing.T) {
	_, err := chain.NewRegistry([]chain.Endpoint{{ChainID: 0, RPCURLs: []string{"http://x"}}}, chain.Options{})
	require.Error(t, err)

	_, err = chain.NewRegistry([]chain.Endpoint{{ChainID: 1}}, chain.Options{})
	require.Error(t, err)

	_, err = chain.NewRegistry([]chain.Endpoint{
		{ChainID: 1, RPCURLs: []string{"http://x"}},
		{ChainID: 1, RPCURLs: []string{"http://y"}},
	}, chain.Options{})
	require.Error(t, err)
}

func TestResolveIsIdempotent(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, Name: "ethereum", RPCURLs: []string{fake.URL()}})

	first, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)
	second, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fake.Requests("eth_chainId"))
	assert.Equal(t, int64(1), first.ChainID())
	assert.Equal(t, []int64{1}, r.ChainIDs())
}

func TestUnsupportedChain(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}})

	_, err := r.Resolve(t.Context(), 5)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedChain))

	_, err = r.Endpoint(5)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedChain))

	assert.Equal(t, 0, fake.Requests("eth_chainId"))
}

func TestResolveRejectsWrongChain(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	fake.SetReportedChainID(5)
	r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}})

	_, err := r.Resolve(t.Context(), 1)
	assert.True(t, errors.Is(err, errs.ErrConnectivity))

	// failures are not cached
	fake.SetReportedChainID(1)
	_, err = r.Resolve(t.Context(), 1)
	require.NoError(t, err)
}

func TestResolveUnreachable(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	fake.SetDown(true)
	r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}})

	_, err := r.Resolve(t.Context(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConnectivity))
	assert.Equal(t, "CONNECTIVITY", errs.Code(err))
}

// silentEndpoint accepts connections and never answers. accepted is signalled once per connection.
func silentEndpoint(t *testing.T) (url string, accepted <-chan struct{}) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ch := make(chan struct{}, 16)
	var conns []net.Conn
	var mu sync.Mutex

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	t.Cleanup(func() {
		_ = l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	return "http://" + l.Addr().String(), ch
}

func TestResolveDoesNotBlockOnOtherChains(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	silentURL, accepted := silentEndpoint(t)
	r := newRegistry(t, chain.Options{},
		chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}},
		chain.Endpoint{ChainID: 42161, RPCURLs: []string{silentURL}},
	)

	_, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)

	slowCtx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(slowCtx, 42161)
		done <- err
	}()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("silent endpoint was never dialed")
	}

	start := time.Now()
	c, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ChainID())
	assert.Less(t, time.Since(start), time.Second)

	cancel()
	err = <-done
	require.Error(t, err)
}

func TestFailover(t *testing.T) {
	down := test.NewFakeChain(t, 42161)
	down.SetDown(true)
	up := test.NewFakeChain(t, 42161)
	up.SetBalance(holder, big.NewInt(42))

	m, err := metrics.New(config.Server{})
	require.NoError(t, err)

	r := newRegistry(t, chain.Options{Metrics: m}, chain.Endpoint{ChainID: 42161, RPCURLs: []string{down.URL(), up.URL()}})

	c, err := r.Resolve(t.Context(), 42161)
	require.NoError(t, err)

	balance, err := c.BalanceAt(t.Context(), holder)
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance.Int64())

	// the healthy endpoint stays current after the first failover
	assert.Equal(t, 1, down.Hits())
	assert.Equal(t, 1, up.Requests("eth_getBalance"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.RPCCalls.WithLabelValues("42161", "eth_getBalance", metrics.ResultOK)), 0)
}

func TestClientReads(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	fake.SetNonce(holder, 7)
	fake.SetGasPrice(big.NewInt(3_000_000_000))
	fake.OnCall(test.Selector("decimals()"), func(_ common.Address, _ []byte) ([]byte, error) {
		return common.LeftPadBytes([]byte{6}, 32), nil
	})

	r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}})
	c, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)

	nonce, err := c.PendingNonceAt(t.Context(), holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	price, err := c.SuggestGasPrice(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000_000), price.Int64())

	number, err := c.BlockNumber(t.Context())
	require.NoError(t, err)
	assert.Equal(t, fake.BlockNumber(), number)

	out, err := c.CallContract(t.Context(), holder, test.Selector("decimals()"))
	require.NoError(t, err)
	assert.Equal(t, byte(6), out[31])

	_, err = c.CallContract(t.Context(), holder, test.Selector("symbol()"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrConnectivity))

	_, err = c.TransactionReceipt(t.Context(), common.HexToHash("0x01"))
	assert.True(t, errors.Is(err, ethereum.NotFound))
}

func TestHeaderDecoding(t *testing.T) {
	strictFake := test.NewFakeChain(t, 1)
	strictFake.SetSparseHeaders(true)
	poaFake := test.NewFakeChain(t, 42161)
	poaFake.SetSparseHeaders(true)
	poaFake.SetPOAHeaders(true)

	r := newRegistry(t, chain.Options{},
		chain.Endpoint{ChainID: 1, RPCURLs: []string{strictFake.URL()}},
		chain.Endpoint{ChainID: 42161, RPCURLs: []string{poaFake.URL()}, RequiresPOACompat: true},
	)

	strict, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)
	_, err = strict.HeaderByNumber(t.Context(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chain.ErrMalformedResponse))

	strictFake.SetSparseHeaders(false)
	header, err := strict.HeaderByNumber(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, strictFake.BlockNumber(), header.Number)

	poa, err := r.Resolve(t.Context(), 42161)
	require.NoError(t, err)
	header, err = poa.HeaderByNumber(t.Context(), big.NewInt(50))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), header.Number)
	assert.Len(t, header.Extra, 32)
	assert.Len(t, header.Seal, 65)

	_, err = poa.HeaderByNumber(t.Context(), big.NewInt(1_000_000))
	assert.True(t, errors.Is(err, ethereum.NotFound))
}

func TestReceiptDecoding(t *testing.T) {
	hash := common.HexToHash("0xabc")

	for _, poa := range []bool{false, true} {
		fake := test.NewFakeChain(t, 1)
		fake.SetReceipt(hash, 1, 90, 21000)

		r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}, RequiresPOACompat: poa})
		c, err := r.Resolve(t.Context(), 1)
		require.NoError(t, err)

		receipt, err := c.TransactionReceipt(t.Context(), hash)
		require.NoError(t, err)
		assert.Equal(t, hash, receipt.TxHash)
		assert.Equal(t, uint64(1), receipt.Status)
		assert.Equal(t, uint64(90), receipt.BlockNumber)
		assert.Equal(t, uint64(21000), receipt.GasUsed)
		assert.Nil(t, receipt.ContractAddress)
	}
}

func TestProbe(t *testing.T) {
	up := test.NewFakeChain(t, 1)
	down := test.NewFakeChain(t, 42161)
	down.SetDown(true)

	m, err := metrics.New(config.Server{})
	require.NoError(t, err)

	r := newRegistry(t, chain.Options{Metrics: m},
		chain.Endpoint{ChainID: 1, Name: "ethereum", RPCURLs: []string{up.URL()}},
		chain.Endpoint{ChainID: 42161, Name: "arbitrum", RPCURLs: []string{down.URL()}},
	)

	results := r.Probe(t.Context())
	require.Len(t, results, 2)

	assert.True(t, results[0].Reachable)
	assert.Equal(t, "ethereum", results[0].Name)
	assert.Equal(t, up.BlockNumber(), results[0].LatestBlock)
	assert.Empty(t, results[0].Error)

	assert.False(t, results[1].Reachable)
	assert.NotEmpty(t, results[1].Error)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ChainReachable.WithLabelValues("1")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ChainReachable.WithLabelValues("42161")), 0)
}

func TestRateLimit(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	r := newRegistry(t, chain.Options{RateLimit: 0.001, RateBurst: 1}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}})

	c, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	_, err = c.BlockNumber(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConnectivity))
	assert.Equal(t, 0, fake.Requests("eth_blockNumber"))
}

func TestLockSubmissions(t *testing.T) {
	fake := test.NewFakeChain(t, 1)
	r := newRegistry(t, chain.Options{}, chain.Endpoint{ChainID: 1, RPCURLs: []string{fake.URL()}})

	c, err := r.Resolve(t.Context(), 1)
	require.NoError(t, err)

	unlock, err := c.LockSubmissions(t.Context(), holder)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = c.LockSubmissions(ctx, holder)
	require.Error(t, err)

	unlock()
	unlock, err = c.LockSubmissions(t.Context(), holder)
	require.NoError(t, err)
	unlock()
}
