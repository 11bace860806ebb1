package receipt_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/relayer/receipt"
	"github/chapool/relayer/internal/test"
)

const txHash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"

// hookClock runs onWait before every poll wait.
type hookClock struct {
	*test.Clock
	onWait func()
}

func (c hookClock) After(d time.Duration) <-chan time.Time {
	c.onWait()
	return c.Clock.After(d)
}

func newTracker(t *testing.T, cfg receipt.Config) (receipt.Tracker, *test.FakeChain, *metrics.Service) {
	t.Helper()

	fake := test.NewFakeChain(t, 1)

	m, err := metrics.New(config.Server{})
	require.NoError(t, err)

	registry, err := chain.NewRegistry([]chain.Endpoint{{ChainID: 1, RPCURLs: []string{fake.URL()}}}, chain.Options{})
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	if cfg.Clock == nil {
		cfg.Clock = test.NewClock(time.Unix(1_700_000_000, 0))
	}

	return receipt.NewService(registry, m, cfg), fake, m
}

func TestParseHash(t *testing.T) {
	hash, err := receipt.ParseHash(txHash)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(txHash), hash)

	for _, s := range []string{
		"",
		"0x",
		"88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b",
		"0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a71394",
		"0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944bff",
		"0xzzdf016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b",
	} {
		_, err := receipt.ParseHash(s)
		assert.Truef(t, errors.Is(err, errs.ErrInvalidTransactionID), "hash %q", s)
	}
}

func TestAwaitSuccess(t *testing.T) {
	tracker, fake, m := newTracker(t, receipt.Config{})
	fake.SetReceipt(common.HexToHash(txHash), 1, 90, 21000)

	r, err := tracker.Await(t.Context(), 1, txHash, receipt.DefaultTimeout)
	require.NoError(t, err)

	assert.Equal(t, receipt.StatusSuccess, r.Status)
	require.NotNil(t, r.BlockNumber)
	assert.Equal(t, uint64(90), *r.BlockNumber)
	require.NotNil(t, r.GasUsed)
	assert.Equal(t, uint64(21000), *r.GasUsed)
	assert.Equal(t, fake.BlockNumber()-90, r.Confirmations)
	assert.NoError(t, r.Err)
	assert.Equal(t, 1, fake.Requests("eth_getTransactionReceipt"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Receipts.WithLabelValues("1", "success")), 0)
}

func TestAwaitFailed(t *testing.T) {
	tracker, fake, _ := newTracker(t, receipt.Config{})
	fake.SetReceipt(common.HexToHash(txHash), 0, 95, 40000)

	r, err := tracker.Await(t.Context(), 1, txHash, time.Second)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusFailed, r.Status)
	assert.Equal(t, uint64(40000), *r.GasUsed)
}

func TestAwaitReturnsPendingAtDeadline(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		reads   int
	}{
		{0, 1},
		{time.Second, 2},
		{120 * time.Second, 61},
	}

	for _, tt := range tests {
		t.Run(tt.timeout.String(), func(t *testing.T) {
			tracker, fake, _ := newTracker(t, receipt.Config{PollInterval: 2 * time.Second})

			r, err := tracker.Await(t.Context(), 1, txHash, tt.timeout)
			require.NoError(t, err)

			assert.Equal(t, receipt.StatusPending, r.Status)
			assert.Nil(t, r.BlockNumber)
			assert.Nil(t, r.GasUsed)
			assert.Equal(t, uint64(0), r.Confirmations)
			assert.NoError(t, r.Err)
			assert.Equal(t, tt.reads, fake.Requests("eth_getTransactionReceipt"))
		})
	}
}

func TestAwaitPicksUpLateReceipt(t *testing.T) {
	var (
		fake  *test.FakeChain
		waits atomic.Int32
	)
	clock := hookClock{
		Clock: test.NewClock(time.Unix(1_700_000_000, 0)),
		onWait: func() {
			if waits.Add(1) == 3 {
				fake.SetReceipt(common.HexToHash(txHash), 1, 101, 21000)
			}
		},
	}

	tracker, f, _ := newTracker(t, receipt.Config{PollInterval: time.Second, Clock: clock})
	fake = f

	r, err := tracker.Await(t.Context(), 1, txHash, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusSuccess, r.Status)
	assert.Equal(t, 4, fake.Requests("eth_getTransactionReceipt"))
}

func TestConfirmationsClampAtZero(t *testing.T) {
	tracker, fake, _ := newTracker(t, receipt.Config{})
	fake.SetReceipt(common.HexToHash(txHash), 1, fake.BlockNumber()+50, 21000)

	r, err := tracker.Status(t.Context(), 1, txHash)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusSuccess, r.Status)
	assert.Equal(t, uint64(0), r.Confirmations)
}

func TestStatus(t *testing.T) {
	tracker, fake, _ := newTracker(t, receipt.Config{})

	r, err := tracker.Status(t.Context(), 1, txHash)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusPending, r.Status)

	fake.SetReceipt(common.HexToHash(txHash), 1, 99, 21000)
	fake.Mine(4)

	r, err = tracker.Status(t.Context(), 1, txHash)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusSuccess, r.Status)
	assert.Equal(t, uint64(5), r.Confirmations)
	assert.Equal(t, 2, fake.Requests("eth_getTransactionReceipt"))
}

func TestAwaitRejectsBadInput(t *testing.T) {
	tracker, fake, _ := newTracker(t, receipt.Config{})

	_, err := tracker.Await(t.Context(), 10, txHash, time.Second)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedChain))

	_, err = tracker.Await(t.Context(), 1, "0x1234", time.Second)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransactionID))

	_, err = tracker.Status(t.Context(), 1, "not a hash")
	assert.True(t, errors.Is(err, errs.ErrInvalidTransactionID))

	assert.Equal(t, 0, fake.Hits())
}

func TestAwaitUnreachableStaysPending(t *testing.T) {
	tracker, fake, _ := newTracker(t, receipt.Config{})
	fake.SetDown(true)

	r, err := tracker.Await(t.Context(), 1, txHash, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusPending, r.Status)
	require.Error(t, r.Err)
	assert.True(t, errors.Is(r.Err, errs.ErrConnectivity))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &body))
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, r.Err.Error(), body["error"])
}

func TestAwaitStopsOnCancel(t *testing.T) {
	tracker, _, _ := newTracker(t, receipt.Config{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r, err := tracker.Await(ctx, 1, txHash, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, receipt.StatusPending, r.Status)
	assert.True(t, errors.Is(r.Err, context.Canceled))
}
