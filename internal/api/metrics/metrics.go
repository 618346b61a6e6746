// Package metrics defines and registers all custom Prometheus metrics for the
// import operations console. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default registry at package init via
// promauto; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "importconsole"

// ── Update coordinator metrics ────────────────────────────────────────────────

// UpdatesAppliedTotal counts updates that settled successfully.
// Label:
//   - field: the logical field name carried by the patch (one increment per field)
var UpdatesAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_applied_total",
		Help:      "Total number of field updates successfully persisted.",
	},
	[]string{"field"},
)

// UpdatesFailedTotal counts updates that reached the terminal Failed state.
// Label:
//   - class: "transient" (retry exhausted) or "permanent" (store rejection)
var UpdatesFailedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_failed_total",
		Help:      "Total number of updates that settled as failed, by failure class.",
	},
	[]string{"class"},
)

// UpdateRetriesTotal counts transient failures that triggered the single retry.
var UpdateRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "update_retries_total",
		Help:      "Total number of retry attempts after a transient store failure.",
	},
)

// UpdatesInFlight tracks updates accepted but not yet settled.
var UpdatesInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "updates_in_flight",
		Help:      "Number of updates currently accepted and unsettled.",
	},
)

// UpdateDuration measures acceptance-to-settlement time for one update.
// Label:
//   - outcome: "succeeded" or "failed"
var UpdateDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "update_duration_seconds",
		Help:      "Duration from update acceptance to terminal state.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ── Verification metrics ──────────────────────────────────────────────────────

// VerificationChecksTotal counts post-write verification reads.
// Label:
//   - result: "match" or "mismatch"
var VerificationChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_checks_total",
		Help:      "Total number of post-write verification reads, by result.",
	},
	[]string{"result"},
)

// VerificationRepairsTotal counts silent repair writes issued after a
// verification mismatch.
// Label:
//   - outcome: "ok" or "error"
var VerificationRepairsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_repairs_total",
		Help:      "Total number of repair writes issued after verification mismatches.",
	},
	[]string{"outcome"},
)
