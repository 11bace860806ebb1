// Package metrics keeps the prometheus collectors of the relayer.
//
// All methods are safe to call on a nil *Service, which disables recording.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github/chapool/relayer/internal/config"
)

const namespace = "relayer"

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Service struct {
	registry *prometheus.Registry

	RPCCalls       *prometheus.CounterVec
	RPCDuration    *prometheus.HistogramVec
	Submissions    *prometheus.CounterVec
	Receipts       *prometheus.CounterVec
	Settlements    *prometheus.CounterVec
	ChainReachable *prometheus.GaugeVec
}

func New(_ config.Server) (*Service, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Service{
		registry: registry,
		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "JSON-RPC calls issued to chain endpoints.",
		}, []string{"chain_id", "method", "result"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "Latency of JSON-RPC calls issued to chain endpoints.",
			Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		}, []string{"chain_id", "method"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Signed transactions submitted, by outcome.",
		}, []string{"chain_id", "function", "result"}),
		Receipts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_total",
			Help:      "Receipt lookups by resulting status.",
		}, []string{"chain_id", "status"}),
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_checks_total",
			Help:      "Destination balance checks by outcome.",
		}, []string{"chain_id", "result"}),
		ChainReachable: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_reachable",
			Help:      "1 if the last probe of the chain succeeded.",
		}, []string{"chain_id"}),
	}, nil
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func chainLabel(chainID int64) string {
	return strconv.FormatInt(chainID, 10)
}

func (s *Service) ObserveRPC(chainID int64, method string, err error, took time.Duration) {
	if s == nil {
		return
	}
	s.RPCCalls.WithLabelValues(chainLabel(chainID), method, result(err)).Inc()
	s.RPCDuration.WithLabelValues(chainLabel(chainID), method).Observe(took.Seconds())
}

func (s *Service) ObserveSubmission(chainID int64, function string, err error) {
	if s == nil {
		return
	}
	s.Submissions.WithLabelValues(chainLabel(chainID), function, result(err)).Inc()
}

func (s *Service) ObserveReceipt(chainID int64, status string) {
	if s == nil {
		return
	}
	s.Receipts.WithLabelValues(chainLabel(chainID), status).Inc()
}

func (s *Service) ObserveSettlement(chainID int64, received bool, err error) {
	if s == nil {
		return
	}
	res := "pending"
	switch {
	case err != nil:
		res = ResultError
	case received:
		res = "received"
	}
	s.Settlements.WithLabelValues(chainLabel(chainID), res).Inc()
}

func (s *Service) SetChainReachable(chainID int64, reachable bool) {
	if s == nil {
		return
	}
	v := 0.0
	if reachable {
		v = 1
	}
	s.ChainReachable.WithLabelValues(chainLabel(chainID)).Set(v)
}

// Gatherer exposes the underlying registry, mainly for tests.
func (s *Service) Gatherer() prometheus.Gatherer {
	return s.registry
}

func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}
