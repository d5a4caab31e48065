package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"claimgate/core/events"
)

type ClaimMetrics struct {
	campaignsCreated *prometheus.CounterVec
	claimsSucceeded  *prometheus.CounterVec
	claimsFailed     *prometheus.CounterVec
	rafflesDrawn     prometheus.Counter
	distributed      *prometheus.CounterVec
	feesCollected    *prometheus.CounterVec
}

var (
	claimsOnce     sync.Once
	claimsRegistry *ClaimMetrics
)

func Claims() *ClaimMetrics {
	claimsOnce.Do(func() {
		claimsRegistry = &ClaimMetrics{
			campaignsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "claimgate_campaigns_created_total",
				Help: "Count of campaigns instantiated by activity and reward kind.",
			}, []string{"activity_kind", "reward_kind"}),
			claimsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "claimgate_claims_succeeded_total",
				Help: "Count of committed claims by reward kind.",
			}, []string{"reward_kind"}),
			claimsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "claimgate_claims_failed_total",
				Help: "Count of refused claims by failure reason.",
			}, []string{"reason"}),
			rafflesDrawn: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "claimgate_raffles_drawn_total",
				Help: "Count of raffle draws executed.",
			}),
			distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "claimgate_distributed_total",
				Help: "Cumulative reward units distributed by reward kind.",
			}, []string{"reward_kind"}),
			feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "claimgate_fees_collected_total",
				Help: "Cumulative fee units collected by reward kind.",
			}, []string{"reward_kind"}),
		}
		prometheus.MustRegister(
			claimsRegistry.campaignsCreated,
			claimsRegistry.claimsSucceeded,
			claimsRegistry.claimsFailed,
			claimsRegistry.rafflesDrawn,
			claimsRegistry.distributed,
			claimsRegistry.feesCollected,
		)
	})
	return claimsRegistry
}

func (m *ClaimMetrics) ObserveCampaignCreated(activityKind, rewardKind string) {
	if m == nil {
		return
	}
	m.campaignsCreated.WithLabelValues(orUnknown(activityKind), orUnknown(rewardKind)).Inc()
}

func (m *ClaimMetrics) ObserveClaimSucceeded(rewardKind string, amount, fee *big.Int) {
	if m == nil {
		return
	}
	kind := orUnknown(rewardKind)
	m.claimsSucceeded.WithLabelValues(kind).Inc()
	if amount != nil {
		value, _ := new(big.Float).SetInt(amount).Float64()
		m.distributed.WithLabelValues(kind).Add(value)
	}
	if fee != nil && fee.Sign() > 0 {
		value, _ := new(big.Float).SetInt(fee).Float64()
		m.feesCollected.WithLabelValues(kind).Add(value)
	}
}

func (m *ClaimMetrics) ObserveClaimFailed(reason string) {
	if m == nil {
		return
	}
	m.claimsFailed.WithLabelValues(orUnknown(reason)).Inc()
}

func (m *ClaimMetrics) ObserveRaffleDrawn() {
	if m == nil {
		return
	}
	m.rafflesDrawn.Inc()
}

func orUnknown(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}

// Collector adapts the metrics registry to the event stream so every engine
// emission is observed without the engines knowing about Prometheus.
type Collector struct {
	metrics *ClaimMetrics
}

// NewCollector returns an events.Emitter feeding the shared claim metrics.
func NewCollector() *Collector {
	return &Collector{metrics: Claims()}
}

// Emit implements the events.Emitter interface.
func (c *Collector) Emit(evt events.Event) {
	if c == nil || c.metrics == nil || evt == nil {
		return
	}
	switch e := evt.(type) {
	case events.CampaignCreated:
		c.metrics.ObserveCampaignCreated(e.ActivityKind, e.RewardKind)
	case events.ClaimSucceeded:
		c.metrics.ObserveClaimSucceeded(e.RewardKind, e.Amount, e.Fee)
	case events.ClaimFailed:
		c.metrics.ObserveClaimFailed(e.Reason)
	case events.RaffleDrawn:
		c.metrics.ObserveRaffleDrawn()
	}
}
