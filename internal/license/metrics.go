package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	TracerName = "shopcfg/license"
	MeterName  = "shopcfg/license"
)

// Metrics holds the license instruments
type Metrics struct {
	verifications metric.Int64Counter
	duration      metric.Float64Histogram
	licensed      metric.Int64ObservableGauge
}

// NewMetrics registers the license instruments on meter. A nil meter
// produces no-op instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	verifications, err := meter.Int64Counter(
		"license.verifications",
		metric.WithDescription("License key verifications by outcome and source"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifications counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"license.verification.duration",
		metric.WithDescription("Time spent verifying a license key"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	licensed, err := meter.Int64ObservableGauge(
		"license.state.licensed",
		metric.WithDescription("1 when the session is licensed, 0 otherwise"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create licensed gauge: %w", err)
	}

	return &Metrics{
		verifications: verifications,
		duration:      duration,
		licensed:      licensed,
	}, nil
}

// observe registers a callback reporting the session state
func (m *Metrics) observe(meter metric.Meter, licensed func() bool) error {
	if meter == nil {
		return nil
	}
	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		v := int64(0)
		if licensed() {
			v = 1
		}
		o.ObserveInt64(m.licensed, v)
		return nil
	}, m.licensed)
	return err
}

func (m *Metrics) record(ctx context.Context, source string, outcome Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome.Reason.String()),
	)
	m.verifications.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
