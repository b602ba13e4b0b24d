package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotdi_cycles_total",
			Help: "Decision cycles executed, labelled by outcome.",
		},
		[]string{"symbol", "result"},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotdi_orders_submitted_total",
			Help: "Orders submitted to the exchange, labelled by context.",
		},
		[]string{"ctx"},
	)

	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotdi_trades_closed_total",
			Help: "Closed trades, labelled by exit reason.",
		},
		[]string{"symbol", "reason"},
	)

	PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotdi_positions_open",
			Help: "Whether a position is currently open per symbol (0 or 1).",
		},
		[]string{"symbol"},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gotdi_equity",
			Help: "Account balance as of the last equity-curve sample.",
		},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, OrdersSubmitted, TradesClosed, PositionsOpen, EquityGauge)
}
