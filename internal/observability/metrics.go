// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/mail"
)

// Metrics holds the application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FlowsTotal      *prometheus.CounterVec
	MailTotal       *prometheus.CounterVec
}

// NewMetrics creates the application metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hellowebapp_http_requests_total",
				Help: "Total number of API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hellowebapp_http_request_duration_seconds",
				Help:    "API request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		FlowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hellowebapp_auth_flows_total",
				Help: "Total number of account flow runs by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		MailTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hellowebapp_mail_sent_total",
				Help: "Total number of mail deliveries by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.FlowsTotal, m.MailTotal)
	return m
}

// ObserveRequest records one served API request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordFlow records the outcome of an account flow: "ok" or the error kind.
func (m *Metrics) RecordFlow(flow string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = auth.KindOf(err).String()
	}
	m.FlowsTotal.WithLabelValues(flow, outcome).Inc()
}

type instrumentedSender struct {
	next    mail.Sender
	metrics *Metrics
}

// InstrumentSender counts the deliveries made through next.
func InstrumentSender(next mail.Sender, m *Metrics) mail.Sender {
	if m == nil {
		return next
	}
	return &instrumentedSender{next: next, metrics: m}
}

func (s *instrumentedSender) Send(ctx context.Context, msg mail.Message) error {
	err := s.next.Send(ctx, msg)
	result := "sent"
	if err != nil {
		result = "failed"
	}
	s.metrics.MailTotal.WithLabelValues(result).Inc()
	return err //nolint:wrapcheck // transparent decorator
}
