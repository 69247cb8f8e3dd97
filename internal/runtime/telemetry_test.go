package runtime

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/reportbot/config"
)

func TestSetupTelemetryDisabled(t *testing.T) {
	tel, tracer, err := SetupTelemetry(context.Background(), config.TelemetryConfig{}, TelemetryOptions{ServiceName: "reportbot"})
	if err != nil {
		t.Fatalf("SetupTelemetry: %v", err)
	}
	if tracer == nil {
		t.Fatal("tracer is nil")
	}
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
