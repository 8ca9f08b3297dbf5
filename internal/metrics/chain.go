package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Deploy outcomes.
const (
	DeployDeployed = "deployed"
	DeployFailed   = "failed"
	DeployTimeout  = "timeout"
)

var (
	deploysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deploys_total",
			Help:      "Collection deploy attempts by outcome.",
		},
		[]string{"outcome"},
	)

	mintsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mints_total",
			Help:      "Mint messages by collection exit code; \"unknown\" when the outcome was not observed.",
		},
		[]string{"exit_code"},
	)

	getMethodDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "get_method_duration_seconds",
			Help:      "Get method latency by method and result.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "result"},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "liteserver_breaker_state",
			Help:      "Lite-server circuit breaker state: 0 closed, 1 open, 2 half-open.",
		},
	)

	webhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries by event and result.",
		},
		[]string{"event", "result"},
	)
)

func ObserveDeploy(outcome string) {
	deploysTotal.WithLabelValues(outcome).Inc()
}

// ObserveMint counts a mint. observed is false when only the wallet
// transaction is known.
func ObserveMint(exitCode int32, observed bool) {
	label := "unknown"
	if observed {
		label = strconv.Itoa(int(exitCode))
	}
	mintsTotal.WithLabelValues(label).Inc()
}

// ObserveGetMethod records the latency of a get method call. labelled maps
// sentinel errors to their own result label.
func ObserveGetMethod(method string, start time.Time, err error, labelled map[error]string) {
	result := "ok"
	if err != nil {
		result = "error"
		for target, label := range labelled {
			if errors.Is(err, target) {
				result = label
				break
			}
		}
	}
	getMethodDuration.WithLabelValues(method, result).Observe(time.Since(start).Seconds())
}

// SetBreakerState takes the numeric circuitbreaker.State.
func SetBreakerState(state int) {
	breakerState.Set(float64(state))
}

func ObserveWebhook(event string, err error) {
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	webhookDeliveries.WithLabelValues(event, result).Inc()
}
