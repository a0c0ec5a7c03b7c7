package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"instrument"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted by the detector"},
		[]string{"instrument", "direction"},
	)
	VetoesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vetoes_total", Help: "Signals vetoed before execution"},
		[]string{"reason"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Broker executions attempted"},
		[]string{"instrument", "direction", "result"},
	)
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "settlements_total", Help: "Trades settled by outcome"},
		[]string{"outcome"},
	)
	PendingTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pending_trades", Help: "Trades awaiting settlement"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, VetoesTotal, TradesTotal, SettlementsTotal, PendingTrades)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
