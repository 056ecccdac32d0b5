// Package observe provides application-wide observability primitives for
// voicenav: OpenTelemetry metrics, tracing helpers, and the SDK provider
// setup that bridges metrics to Prometheus.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voicenav metrics.
const meterName = "github.com/voicenav/voicenav"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// EventsReceived counts inbound protocol events. Use with attribute:
	//   attribute.String("event_type", ...)
	EventsReceived metric.Int64Counter

	// EventsSent counts outbound protocol events. Use with attribute:
	//   attribute.String("event_type", ...)
	EventsSent metric.Int64Counter

	// SendFailures counts client events dropped because the transport
	// channel was not open.
	SendFailures metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// ToolDuration tracks tool handler latency. Same attributes as ToolCalls.
	ToolDuration metric.Float64Histogram

	// AgentTransfers counts agent handoffs. Use with attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	AgentTransfers metric.Int64Counter

	// ActiveSessions tracks the number of live realtime sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for tool handlers that make one downstream HTTP round trip.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EventsReceived, err = m.Int64Counter("voicenav.events.received",
		metric.WithDescription("Inbound protocol events by type."),
	); err != nil {
		return nil, err
	}
	if met.EventsSent, err = m.Int64Counter("voicenav.events.sent",
		metric.WithDescription("Outbound protocol events by type."),
	); err != nil {
		return nil, err
	}
	if met.SendFailures, err = m.Int64Counter("voicenav.events.send_failures",
		metric.WithDescription("Client events dropped because the channel was not open."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("voicenav.tool.calls",
		metric.WithDescription("Tool invocations by tool and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("voicenav.tool.duration",
		metric.WithDescription("Latency of tool handler execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AgentTransfers, err = m.Int64Counter("voicenav.agent.transfers",
		metric.WithDescription("Agent handoffs by source and target."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voicenav.sessions.active",
		metric.WithDescription("Number of live realtime sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] instance backed by the
// globally registered meter provider. Instruments are created on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on invalid names; fall back to
			// a zero Metrics so callers may still record into nil instruments.
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// The Add* and Record* helpers below are nil-safe so callers may hold a nil
// *Metrics when observability is disabled (tests, bare CLI runs).

// RecordToolCall records one tool invocation outcome with its duration.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	if m.ToolCalls != nil {
		m.ToolCalls.Add(ctx, 1, attrs)
	}
	if m.ToolDuration != nil {
		m.ToolDuration.Record(ctx, seconds, attrs)
	}
}

// AddEventReceived counts one inbound protocol event.
func (m *Metrics) AddEventReceived(ctx context.Context, eventType string) {
	if m == nil || m.EventsReceived == nil {
		return
	}
	m.EventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// AddEventSent counts one outbound protocol event.
func (m *Metrics) AddEventSent(ctx context.Context, eventType string) {
	if m == nil || m.EventsSent == nil {
		return
	}
	m.EventsSent.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// AddSendFailure counts one dropped client event.
func (m *Metrics) AddSendFailure(ctx context.Context) {
	if m == nil || m.SendFailures == nil {
		return
	}
	m.SendFailures.Add(ctx, 1)
}

// AddTransfer counts one agent handoff.
func (m *Metrics) AddTransfer(ctx context.Context, from, to string) {
	if m == nil || m.AgentTransfers == nil {
		return
	}
	m.AgentTransfers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// SessionStarted and SessionEnded adjust the live session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the live session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
