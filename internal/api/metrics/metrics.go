// Package metrics defines and registers all custom Prometheus metrics for the
// store rating API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storerating"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// UsersRegisteredTotal counts successful self-registrations.
var UsersRegisteredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Total number of accounts created through self-registration.",
	},
)

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// ── Rating metrics ────────────────────────────────────────────────────────────

// RatingsSubmittedTotal counts rating submissions.
// Label:
//   - result: "created", "updated", or "rejected"
var RatingsSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratings_submitted_total",
		Help:      "Total number of rating submissions, labelled by outcome.",
	},
	[]string{"result"},
)

// RatingValue observes the submitted score, so the distribution of 1-5 ratings
// can be charted per bucket.
var RatingValue = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rating_value",
		Help:      "Distribution of accepted rating scores.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	},
)

// ── Admin metrics ─────────────────────────────────────────────────────────────

// ResourcesChangedTotal counts administrative mutations.
// Labels:
//   - resource: "user", "store", or "rating"
//   - action: "create", "update", or "delete"
var ResourcesChangedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resources_changed_total",
		Help:      "Total number of create/update/delete operations, by resource.",
	},
	[]string{"resource", "action"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPErrorsTotal counts error responses rendered by the central error handler.
// Label:
//   - code: HTTP status code (e.g. "400", "404", "500")
var HTTPErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_errors_total",
		Help:      "Total number of error responses, by status code.",
	},
	[]string{"code"},
)
