package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/relayer/nonce"
	"golang.org/x/time/rate"
)

var ErrMalformedResponse = errors.New("malformed chain response")

type node struct {
	url string
	// name is the url without path, query and credentials, safe for logs.
	name string
	rpc  *rpc.Client
	eth  *ethclient.Client
}

// Client talks to one chain through an ordered list of RPC endpoints, failing over to the next
// endpoint on transport errors.
type Client struct {
	endpoint Endpoint
	nodes    []*node
	limiter  *rate.Limiter
	locker   nonce.Locker
	metrics  *metrics.Service

	mu      sync.RWMutex
	current int
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// dial connects to every URL of ep. URLs that cannot be dialed are skipped.
func dial(ctx context.Context, ep Endpoint, opts Options) (*Client, error) {
	nodes := make([]*node, 0, len(ep.RPCURLs))
	for _, u := range ep.RPCURLs {
		rc, err := rpc.DialContext(ctx, u)
		if err != nil {
			log.Warn().
				Int64("chain_id", ep.ChainID).
				Str("endpoint", redactURL(u)).
				Err(errors.New(strings.ReplaceAll(err.Error(), u, redactURL(u)))).
				Msg("Failed to dial RPC endpoint, skipping")
			continue
		}
		nodes = append(nodes, &node{url: u, name: redactURL(u), rpc: rc, eth: ethclient.NewClient(rc)})
	}

	if len(nodes) == 0 {
		return nil, errs.Newf(errs.ErrConnectivity, "no RPC endpoint of chain %d could be dialed", ep.ChainID)
	}

	locker := opts.Locker
	if locker == nil {
		locker = nonce.NewLocalLocker()
	}

	return &Client{
		endpoint: ep,
		nodes:    nodes,
		limiter:  newLimiter(opts.RateLimit, opts.RateBurst),
		locker:   locker,
		metrics:  opts.Metrics,
	}, nil
}

func (c *Client) ChainID() int64 {
	return c.endpoint.ChainID
}

func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

func (c *Client) Close() {
	for _, n := range c.nodes {
		n.rpc.Close()
	}
}

// isTransportError reports whether err means the endpoint could not be reached or did not
// answer, as opposed to a node level JSON-RPC error or a decoding failure.
func isTransportError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}

	var (
		rpcErr    rpc.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &rpcErr),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.Is(err, ethereum.NotFound),
		errors.Is(err, ErrMalformedResponse):
		return false
	}

	return true
}

func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context, n *node) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrapf(errs.ErrConnectivity, err, "%s on chain %d not attempted", method, c.endpoint.ChainID)
	}

	start := time.Now()
	err := c.failover(ctx, method, fn)
	c.metrics.ObserveRPC(c.endpoint.ChainID, method, err, time.Since(start))

	return err
}

func (c *Client) failover(ctx context.Context, method string, fn func(ctx context.Context, n *node) error) error {
	c.mu.RLock()
	first := c.current
	c.mu.RUnlock()

	var lastErr error
	for i := range len(c.nodes) {
		idx := (first + i) % len(c.nodes)
		n := c.nodes[idx]

		err := fn(ctx, n)
		if !isTransportError(ctx, err) {
			if idx != first {
				c.mu.Lock()
				c.current = idx
				c.mu.Unlock()
			}
			if err != nil && ctx.Err() != nil {
				return errs.Wrapf(errs.ErrConnectivity, ctx.Err(), "%s on chain %d", method, c.endpoint.ChainID)
			}
			return err
		}

		// transport errors may carry the full url, including api keys
		lastErr = errors.New(strings.ReplaceAll(err.Error(), n.url, n.name))
		log.Warn().
			Int64("chain_id", c.endpoint.ChainID).
			Str("endpoint", n.name).
			Str("method", method).
			Err(lastErr).
			Msg("RPC endpoint failed")
	}

	return errs.Wrapf(errs.ErrConnectivity, lastErr, "%s on chain %d", method, c.endpoint.ChainID)
}

// probe checks that the endpoint answers and serves the configured chain.
func (c *Client) probe(ctx context.Context) error {
	var id *big.Int
	err := c.call(ctx, "eth_chainId", func(ctx context.Context, n *node) error {
		var err error
		id, err = n.eth.ChainID(ctx)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to probe chain %d", c.endpoint.ChainID)
	}

	if !id.IsInt64() || id.Int64() != c.endpoint.ChainID {
		return errs.Newf(errs.ErrConnectivity, "endpoint of chain %d reports chain id %s", c.endpoint.ChainID, id)
	}

	return nil
}

func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.call(ctx, "eth_getBalance", func(ctx context.Context, n *node) error {
		var err error
		balance, err = n.eth.BalanceAt(ctx, address, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}

	return balance, nil
}

func (c *Client) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	var pending uint64
	err := c.call(ctx, "eth_getTransactionCount", func(ctx context.Context, n *node) error {
		var err error
		pending, err = n.eth.PendingNonceAt(ctx, address)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pending nonce")
	}

	return pending, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.call(ctx, "eth_gasPrice", func(ctx context.Context, n *node) error {
		var err error
		price, err = n.eth.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas price")
	}

	return price, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.call(ctx, "eth_blockNumber", func(ctx context.Context, n *node) error {
		var err error
		number, err = n.eth.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest block number")
	}

	return number, nil
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "eth_call", func(ctx context.Context, n *node) error {
		var err error
		out, err = n.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to call contract")
	}

	return out, nil
}

// SendRawTransaction broadcasts a signed payload and returns the hash reported by the node.
// Node rejections are returned unwrapped from their rpc.Error so callers can classify them.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	err := c.call(ctx, "eth_sendRawTransaction", func(ctx context.Context, n *node) error {
		return n.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw))
	})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to send raw transaction")
	}

	return hash, nil
}

func (c *Client) raw(ctx context.Context, method string, args ...interface{}) (json.RawMessage, error) {
	var msg json.RawMessage
	err := c.call(ctx, method, func(ctx context.Context, n *node) error {
		return n.rpc.CallContext(ctx, &msg, method, args...)
	})
	if err != nil {
		return nil, err
	}
	if len(msg) == 0 || string(msg) == "null" {
		return nil, ethereum.NotFound
	}

	return msg, nil
}

// TransactionReceipt returns ethereum.NotFound while the transaction is not mined.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error) {
	msg, err := c.raw(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction receipt")
	}

	if c.endpoint.RequiresPOACompat {
		return decodeReceiptLenient(msg)
	}
	return decodeReceiptStrict(msg)
}

// HeaderByNumber returns the header at number, or the latest header when number is nil.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*Header, error) {
	msg, err := c.raw(ctx, "eth_getBlockByNumber", toBlockNumArg(number), false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get header")
	}

	if c.endpoint.RequiresPOACompat {
		return decodeHeaderLenient(msg)
	}
	return decodeHeaderStrict(msg)
}

// LockSubmissions takes the submission lock of from on this chain.
func (c *Client) LockSubmissions(ctx context.Context, from common.Address) (nonce.Unlock, error) {
	unlock, err := c.locker.Lock(ctx, nonce.Key(c.endpoint.ChainID, from))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock submissions on chain %d", c.endpoint.ChainID)
	}
	return unlock, nil
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}
