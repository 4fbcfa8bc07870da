package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/docplatform/authz-service/internal/infra/config"
)

// Provider holds the service's Prometheus instruments.
type Provider struct {
	requestCounter  prometheus.Counter
	decisionCounter *prometheus.CounterVec
}

// Attach registers the service metrics and returns a provider handle.
func Attach(cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	requestCounter := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	})

	decisionCounter := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "decisions_total",
		Help:      "Authorization decisions by outcome, resource type, and action",
	}, []string{"decision", "resource", "action"})

	return &Provider{
		requestCounter:  requestCounter,
		decisionCounter: decisionCounter,
	}, nil
}

// RequestCounter exposes the HTTP request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.requestCounter
}

// RecordDecision counts an evaluator outcome.
func (p *Provider) RecordDecision(decision, resource, action string) {
	if p == nil {
		return
	}
	p.decisionCounter.WithLabelValues(decision, resource, action).Inc()
}
