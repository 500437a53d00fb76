package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks the issuance and exchange activity of the node.
type EngineMetrics struct {
	coinsCreated  prometheus.Counter
	swapsExecuted *prometheus.CounterVec
	lpWithdrawals prometheus.Counter
	feesRouted    *prometheus.CounterVec
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide engine metrics, registering them on first
// use.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			coinsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "datacoin_coins_created_total",
				Help: "Count of successful coin creations.",
			}),
			swapsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "datacoin_swaps_total",
				Help: "Count of executed swaps by direction.",
			}, []string{"direction"}),
			lpWithdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "datacoin_lp_withdrawals_total",
				Help: "Count of liquidity receipt withdrawals.",
			}),
			feesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "datacoin_fees_routed_total",
				Help: "Count of fee routing events by source.",
			}, []string{"source"}),
		}
		prometheus.MustRegister(
			engineRegistry.coinsCreated,
			engineRegistry.swapsExecuted,
			engineRegistry.lpWithdrawals,
			engineRegistry.feesRouted,
		)
	})
	return engineRegistry
}

func (m *EngineMetrics) ObserveCoinCreated() {
	if m == nil {
		return
	}
	m.coinsCreated.Inc()
	m.feesRouted.WithLabelValues("creation").Inc()
}

func (m *EngineMetrics) ObserveSwap(direction string) {
	if m == nil {
		return
	}
	if direction == "" {
		direction = "unknown"
	}
	m.swapsExecuted.WithLabelValues(direction).Inc()
	m.feesRouted.WithLabelValues("swap").Inc()
}

func (m *EngineMetrics) ObserveLPWithdrawal() {
	if m == nil {
		return
	}
	m.lpWithdrawals.Inc()
}
