package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve(":0")
	defer srv.Close()

	TicksTotal.WithLabelValues("EURUSD_OTC").Inc()
	VetoesTotal.WithLabelValues("cooldown").Inc()
	SettlementsTotal.WithLabelValues("WIN").Inc()
	PendingTrades.Set(1)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{
		"ticks_total":       false,
		"vetoes_total":      false,
		"settlements_total": false,
		"pending_trades":    false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("%s metric not found", name)
		}
	}
}
