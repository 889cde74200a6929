package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ticketEventCounter metric.Int64Counter
	aiRequestCounter   metric.Int64Counter
	aiRequestDuration  metric.Float64Histogram
	notifyJobCounter   metric.Int64Counter
)

// InitTicketMetrics registers the help-desk instruments on the global meter.
func InitTicketMetrics() error {
	meter := otel.Meter("ohfdesk.tickets")

	var err error
	ticketEventCounter, err = meter.Int64Counter(
		"ticket.events",
		metric.WithDescription("Ticket changes by event type"),
		metric.WithUnit("{ticket}"),
	)
	if err != nil {
		return err
	}

	aiRequestCounter, err = meter.Int64Counter(
		"ai.requests",
		metric.WithDescription("AI provider calls by purpose and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	aiRequestDuration, err = meter.Float64Histogram(
		"ai.request.duration",
		metric.WithDescription("Duration of AI provider calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	notifyJobCounter, err = meter.Int64Counter(
		"notify.jobs",
		metric.WithDescription("Notification jobs handled by the worker"),
		metric.WithUnit("{job}"),
	)
	return err
}

func RecordTicketEvent(ctx context.Context, eventType string, n int) {
	if ticketEventCounter == nil || n <= 0 {
		return
	}
	ticketEventCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("event", eventType)))
}

func RecordAIRequest(ctx context.Context, purpose string, durationMs float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("purpose", purpose), attribute.String("status", status))
	if aiRequestCounter != nil {
		aiRequestCounter.Add(ctx, 1, attrs)
	}
	if aiRequestDuration != nil {
		aiRequestDuration.Record(ctx, durationMs, attrs)
	}
}

func RecordNotifyJob(ctx context.Context, jobType string, err error) {
	if notifyJobCounter == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	notifyJobCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", jobType), attribute.String("status", status)))
}
