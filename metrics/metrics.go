package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_scans_total",
		Help: "Scan passes per chain and direction",
	}, []string{"chain", "direction"})

	EventsObserved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_events_observed_total",
		Help: "Bridge events decoded from source-chain logs",
	}, []string{"chain", "direction"})

	RelaysConfirmed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_relays_confirmed_total",
		Help: "Destination calls confirmed (including idempotent outcomes)",
	}, []string{"direction"})

	RelayErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_relay_errors_total",
		Help: "Relay attempts that left the record pending",
	}, []string{"direction", "reason"})

	PendingTransfers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_pending_transfers",
		Help: "Transfer records currently pending",
	})
)

func init() {
	prometheus.MustRegister(ScansTotal, EventsObserved, RelaysConfirmed, RelayErrors, PendingTransfers)
}
