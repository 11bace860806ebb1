package chain

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/util"
)

type registry struct {
	order     []int64
	endpoints map[int64]Endpoint
	opts      Options

	mu      sync.Mutex
	clients map[int64]*Client
	// dialing serialises first use of each chain.
	dialing map[int64]*sync.Mutex
}

// NewRegistry validates endpoints and returns a registry that dials them lazily.
//
//nolint:ireturn // Returning interface is intentional
func NewRegistry(endpoints []Endpoint, opts Options) (Registry, error) {
	r := &registry{
		order:     make([]int64, 0, len(endpoints)),
		endpoints: make(map[int64]Endpoint, len(endpoints)),
		opts:      opts,
		clients:   make(map[int64]*Client),
		dialing:   make(map[int64]*sync.Mutex, len(endpoints)),
	}

	for _, ep := range endpoints {
		if ep.ChainID <= 0 {
			return nil, errors.Errorf("invalid chain id %d", ep.ChainID)
		}
		if _, ok := r.endpoints[ep.ChainID]; ok {
			return nil, errors.Errorf("chain %d configured twice", ep.ChainID)
		}
		if len(ep.RPCURLs) == 0 {
			return nil, errors.Errorf("chain %d has no RPC URL", ep.ChainID)
		}

		ep.RPCURLs = append([]string(nil), ep.RPCURLs...)
		if ep.TokenAddress != nil {
			token := *ep.TokenAddress
			ep.TokenAddress = &token
		}

		r.order = append(r.order, ep.ChainID)
		r.endpoints[ep.ChainID] = ep
		r.dialing[ep.ChainID] = &sync.Mutex{}
	}

	return r, nil
}

func (r *registry) Endpoint(chainID int64) (Endpoint, error) {
	ep, ok := r.endpoints[chainID]
	if !ok {
		return Endpoint{}, errs.Newf(errs.ErrUnsupportedChain, "chain %d", chainID)
	}
	return ep, nil
}

func (r *registry) ChainIDs() []int64 {
	return append([]int64(nil), r.order...)
}

func (r *registry) Resolve(ctx context.Context, chainID int64) (*Client, error) {
	ep, err := r.Endpoint(chainID)
	if err != nil {
		return nil, err
	}

	if c, ok := r.cached(chainID); ok {
		return c, nil
	}

	dialing := r.dialing[chainID]
	dialing.Lock()
	defer dialing.Unlock()

	if c, ok := r.cached(chainID); ok {
		return c, nil
	}

	c, err := dial(ctx, ep, r.opts)
	if err != nil {
		return nil, err
	}

	if err := c.probe(ctx); err != nil {
		c.Close()
		return nil, err
	}

	util.LogFromContext(ctx).Info().
		Int64("chain_id", chainID).
		Str("chain", ep.Name).
		Int("endpoints", len(c.nodes)).
		Msg("Connected to chain")

	r.mu.Lock()
	r.clients[chainID] = c
	r.mu.Unlock()

	return c, nil
}

func (r *registry) cached(chainID int64) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[chainID]
	return c, ok
}

func (r *registry) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(r.order))

	for _, id := range r.order {
		res := ProbeResult{ChainID: id, Name: r.endpoints[id].Name}

		header, err := r.probeOne(ctx, id)
		if err != nil {
			res.Error = err.Error()
			log.Warn().Int64("chain_id", id).Err(err).Msg("Chain probe failed")
		} else {
			res.Reachable = true
			res.LatestBlock = header.Number
		}
		r.opts.Metrics.SetChainReachable(id, res.Reachable)

		results = append(results, res)
	}

	return results
}

func (r *registry) probeOne(ctx context.Context, chainID int64) (*Header, error) {
	c, err := r.Resolve(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return c.HeaderByNumber(ctx, nil)
}

func (r *registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}
