package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/ims/internal/adapters/logger"
	"go.trai.ch/ims/internal/core/ports"
)

// TracerNodeID names the graft node that yields the index's ports.Tracer.
const TracerNodeID graft.ID = "adapter.telemetry"

// instrumentationName scopes every span the index emits.
const instrumentationName = "go.trai.ch/ims"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Tracer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			InstallProvider(log)
			return NewOTelTracer(instrumentationName), nil
		},
	})
}

// InstallProvider registers a global tracer provider whose finished spans are
// written to log, and returns it.
func InstallProvider(log ports.Logger) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewLogBridge(log)))
	otel.SetTracerProvider(tp)
	return tp
}
