// Package metrics holds the Prometheus collectors for the SCA decoder,
// registered once the way the style donor registers its controller's
// counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EventsTotal counts dispatched events by type and outcome.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sca_decoder_events_total",
			Help: "Total SCA events processed by the decoder",
		},
		[]string{"type", "outcome"},
	)

	// StoreErrorsTotal counts store queries that resolved to ERROR, by verb.
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sca_decoder_store_errors_total",
			Help: "Total store queries that resolved to an error response",
		},
		[]string{"verb"},
	)

	// DumpRequestsTotal counts dump-request attempts by trigger reason.
	DumpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sca_decoder_dump_requests_total",
			Help: "Total dump requests attempted, independent of send outcome",
		},
		[]string{"reason"},
	)

	// ForwarderConnected reports 1 when the forwarder client believes it
	// holds a live connection, 0 otherwise.
	ForwarderConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sca_decoder_forwarder_connected",
			Help: "Whether the forwarder client currently holds a live connection",
		},
	)
)

func init() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(DumpRequestsTotal)
	prometheus.MustRegister(ForwarderConnected)
}

// Outcome labels for EventsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Dump-request reasons, per SPEC_FULL §4.10.
const (
	ReasonFirstScan          = "first_scan"
	ReasonResultsMismatch    = "results_mismatch"
	ReasonResultsMissing     = "results_missing"
	ReasonScanMismatch       = "scan_mismatch"
	ReasonPolicyHashMismatch = "policy_hash_mismatch"
)
