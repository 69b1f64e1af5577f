package wings

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded in wings_requests_total.
const (
	outcomeSuccess    = "success"
	outcomeAuth       = "auth_error"
	outcomeRequest    = "request_error"
	outcomeConnection = "connection_error"
)

// Metrics records dispatcher activity. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg when it is
// not nil. Registering twice on the same registry reuses the existing
// collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wings",
			Name:      "requests_total",
			Help:      "Node agent calls by method and final outcome.",
		}, []string{"method", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wings",
			Name:      "retries_total",
			Help:      "Retried attempts by failure class.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wings",
			Name:      "request_duration_seconds",
			Help:      "Wall time of node agent calls including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.requests, err = registerOrReuse(reg, m.requests); err != nil {
		return nil, err
	}
	if m.retries, err = registerOrReuse(reg, m.retries); err != nil {
		return nil, err
	}
	if m.duration, err = registerOrReuse(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome(err)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) retry(reason failure) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason.String()).Inc()
}

func outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return outcomeAuth
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return outcomeRequest
	}
	return outcomeConnection
}
