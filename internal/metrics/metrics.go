package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	registrationsCreated metric.Int64Counter
	registrationsDeleted metric.Int64Counter
	registrationsListed  metric.Int64Counter
	validationFailures   metric.Int64Counter
	notifications        metric.Int64Counter
	notifyDuration       metric.Float64Histogram
	adminConnections     metric.Int64UpDownCounter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.registrationsCreated, err = meter.Int64Counter(
		"registration_service.registrations.created",
		metric.WithDescription("Total number of registrations created"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return nil, err
	}

	m.registrationsDeleted, err = meter.Int64Counter(
		"registration_service.registrations.deleted",
		metric.WithDescription("Total number of registrations deleted"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return nil, err
	}

	m.registrationsListed, err = meter.Int64Counter(
		"registration_service.registrations.list_viewed",
		metric.WithDescription("Total number of times the registration list was viewed"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.validationFailures, err = meter.Int64Counter(
		"registration_service.validation.failures",
		metric.WithDescription("Total number of rejected registration submissions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.notifications, err = meter.Int64Counter(
		"registration_service.notifications",
		metric.WithDescription("Total number of new-registration notifications by sink and result"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 100µs, 500µs, 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s
	m.notifyDuration, err = meter.Float64Histogram(
		"registration_service.notification.duration",
		metric.WithDescription("Time spent handing an event to a notification sink"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
		),
	)
	if err != nil {
		return nil, err
	}

	m.adminConnections, err = meter.Int64UpDownCounter(
		"registration_service.admin.connections",
		metric.WithDescription("Current number of connected admin websocket clients"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordRegistrationCreated(ctx context.Context) {
	if m != nil && m.registrationsCreated != nil {
		m.registrationsCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordRegistrationDeleted(ctx context.Context) {
	if m != nil && m.registrationsDeleted != nil {
		m.registrationsDeleted.Add(ctx, 1)
	}
}

func (m *Metrics) RecordListViewed(ctx context.Context) {
	if m != nil && m.registrationsListed != nil {
		m.registrationsListed.Add(ctx, 1)
	}
}

func (m *Metrics) RecordValidationFailure(ctx context.Context) {
	if m != nil && m.validationFailures != nil {
		m.validationFailures.Add(ctx, 1)
	}
}

func (m *Metrics) RecordNotification(ctx context.Context, sink string, duration time.Duration, err error) {
	if m == nil || m.notifications == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("result", result),
	)
	m.notifications.Add(ctx, 1, attrs)
	m.notifyDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("sink", sink)))
}

func (m *Metrics) RecordAdminConnection(ctx context.Context, delta int64) {
	if m != nil && m.adminConnections != nil {
		m.adminConnections.Add(ctx, delta)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
