package websocket

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "shopcfg/websocket"

type hubMetrics struct {
	connections metric.Int64Counter
	active      metric.Int64UpDownCounter
	messages    metric.Int64Counter
	dropped     metric.Int64Counter
}

func newHubMetrics(meter metric.Meter) *hubMetrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}
	m := &hubMetrics{}
	// Instrument errors only happen on invalid names, and fall back to noop.
	var err error
	if m.connections, err = meter.Int64Counter("websocket.connections",
		metric.WithDescription("WebSocket connections accepted")); err != nil {
		m.connections, _ = noop.Meter{}.Int64Counter("")
	}
	if m.active, err = meter.Int64UpDownCounter("websocket.connections.active",
		metric.WithDescription("WebSocket connections currently open")); err != nil {
		m.active, _ = noop.Meter{}.Int64UpDownCounter("")
	}
	if m.messages, err = meter.Int64Counter("websocket.messages",
		metric.WithDescription("Messages delivered to clients")); err != nil {
		m.messages, _ = noop.Meter{}.Int64Counter("")
	}
	if m.dropped, err = meter.Int64Counter("websocket.messages.dropped",
		metric.WithDescription("Messages dropped because a queue was full")); err != nil {
		m.dropped, _ = noop.Meter{}.Int64Counter("")
	}
	return m
}

func (m *hubMetrics) connected(ctx context.Context) {
	m.connections.Add(ctx, 1)
	m.active.Add(ctx, 1)
}

func (m *hubMetrics) disconnected(ctx context.Context) {
	m.active.Add(ctx, -1)
}

func (m *hubMetrics) delivered(ctx context.Context, messageType string, n int) {
	m.messages.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", messageType)))
}

func (m *hubMetrics) drop(ctx context.Context, reason string) {
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
