package tracer

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
)

func TestInitDisabledStillAssignsIDs(t *testing.T) {
	tp, err := Init(context.Background(), config.TracingConfig{Enabled: false, ServiceName: "vetclinic"}, "test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	sc := span.SpanContext()
	if !sc.IsValid() {
		t.Error("expected a valid span context")
	}
	if sc.IsSampled() {
		t.Error("disabled tracing must not sample")
	}
}

func TestSampler(t *testing.T) {
	cases := []struct {
		rate float64
		want string
	}{
		{1, sdktrace.AlwaysSample().Description()},
		{2, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{-1, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.TraceIDRatioBased(0.25).Description()},
	}
	for _, tc := range cases {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}
