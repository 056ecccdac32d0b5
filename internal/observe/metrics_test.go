package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue totals all data points of an int64 sum metric.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetrics_CreatesAllInstruments(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m.EventsReceived == nil || m.EventsSent == nil || m.SendFailures == nil ||
		m.ToolCalls == nil || m.ToolDuration == nil || m.AgentTransfers == nil ||
		m.ActiveSessions == nil {
		t.Fatal("NewMetrics left an instrument nil")
	}
}

func TestRecordToolCall_CountsAndTimes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "selfOperateComputer", "ok", 0.2)
	m.RecordToolCall(ctx, "selfOperateComputer", "ok", 0.4)
	m.RecordToolCall(ctx, "readScreenContent", "error", 1.1)

	rm := collect(t, reader)

	if got := sumValue(t, rm, "voicenav.tool.calls"); got != 3 {
		t.Errorf("tool call count = %d, want 3", got)
	}

	sum, ok := findMetric(rm, "voicenav.tool.calls").Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("voicenav.tool.calls is not an int64 sum")
	}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		switch status.AsString() {
		case "ok":
			if dp.Value != 2 {
				t.Errorf("ok calls = %d, want 2", dp.Value)
			}
		case "error":
			if dp.Value != 1 {
				t.Errorf("error calls = %d, want 1", dp.Value)
			}
		}
	}

	hm := findMetric(rm, "voicenav.tool.duration")
	if hm == nil {
		t.Fatal("duration histogram not found")
	}
	hist, ok := hm.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("voicenav.tool.duration is not a float64 histogram")
	}
	var observations uint64
	for _, dp := range hist.DataPoints {
		observations += dp.Count
	}
	if observations != 3 {
		t.Errorf("duration observations = %d, want 3", observations)
	}
}

func TestEventCounters_TrackDirectionsAndFailures(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AddEventReceived(ctx, "session.created")
	m.AddEventReceived(ctx, "response.audio.delta")
	m.AddEventSent(ctx, "session.update")
	m.AddSendFailure(ctx)

	rm := collect(t, reader)

	if got := sumValue(t, rm, "voicenav.events.received"); got != 2 {
		t.Errorf("events received = %d, want 2", got)
	}
	if got := sumValue(t, rm, "voicenav.events.sent"); got != 1 {
		t.Errorf("events sent = %d, want 1", got)
	}
	if got := sumValue(t, rm, "voicenav.events.send_failures"); got != 1 {
		t.Errorf("send failures = %d, want 1", got)
	}
}

func TestSessionGaugeAndTransfers(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionStarted(ctx)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
	m.AddTransfer(ctx, "greeter", "voiceNavigatorAgent")

	rm := collect(t, reader)

	if got := sumValue(t, rm, "voicenav.sessions.active"); got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
	if got := sumValue(t, rm, "voicenav.agent.transfers"); got != 1 {
		t.Errorf("agent transfers = %d, want 1", got)
	}
}

func TestNilMetrics_HelpersAreNoOps(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordToolCall(ctx, "t", "ok", 0.1)
	m.AddEventReceived(ctx, "x")
	m.AddEventSent(ctx, "x")
	m.AddSendFailure(ctx)
	m.AddTransfer(ctx, "a", "b")
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
}
