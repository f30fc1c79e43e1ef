package rendition

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type renderMetrics struct {
	renders  metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func newRenderMetrics(meter metric.Meter) (*renderMetrics, error) {
	var m = new(renderMetrics)
	var err error

	m.renders, err = meter.Int64Counter(
		`rendition_renders_total`,
		metric.WithDescription(`Total number of render calls`),
	)

	if err != nil {
		return nil, fmt.Errorf("create renders counter: %v", err)
	}

	m.failures, err = meter.Int64Counter(
		`rendition_render_failures_total`,
		metric.WithDescription(`Render calls that fell back to the error template or failed outright`),
	)

	if err != nil {
		return nil, fmt.Errorf("create failures counter: %v", err)
	}

	m.duration, err = meter.Float64Histogram(
		`rendition_render_duration_seconds`,
		metric.WithDescription(`Duration of render calls`),
		metric.WithUnit(`s`),
	)

	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %v", err)
	}

	return m, nil
}

// Record a completed render call.  Safe to call on a nil receiver.
func (self *renderMetrics) record(ctx context.Context, template string, reached FallbackState, took time.Duration) {
	if self == nil {
		return
	}

	var attrs = metric.WithAttributes(
		attribute.String(`template`, template),
		attribute.String(`state`, reached.String()),
	)

	self.renders.Add(ctx, 1, attrs)

	if reached != Primary {
		self.failures.Add(ctx, 1, attrs)
	}

	self.duration.Record(ctx, took.Seconds(), attrs)
}
