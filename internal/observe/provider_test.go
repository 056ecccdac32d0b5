package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitProvider_InstallsGlobalsAndShutsDown(t *testing.T) {
	origMP := otel.GetMeterProvider()
	origTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(origMP)
		otel.SetTracerProvider(origTP)
	})

	shutdown, err := InitProvider("voicenav-test", "0.0.0")
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	if shutdown == nil {
		t.Fatal("InitProvider returned a nil shutdown func")
	}

	if otel.GetMeterProvider() == origMP {
		t.Error("global meter provider not replaced")
	}
	if otel.GetTracerProvider() == origTP {
		t.Error("global tracer provider not replaced")
	}

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
