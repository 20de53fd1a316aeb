package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tasksEventName   = "tasks.request.metrics"
	tasksEventDomain = "taskboard"
	tracerName       = "taskboard-api/api"
)

// taskRequestMetrics collects per-request timings for the board listing and
// reports them both as a structured log line and on an otel span.
type taskRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	errorStage     string
}

func newTaskRequestMetrics(ctx context.Context, logger *log.Logger) (*taskRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "tasks.request")
	return &taskRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *taskRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *taskRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log emits the collected timings and closes the span. Call exactly once,
// after the response status is known.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	totalMillis := durationToMillis(time.Since(m.start))

	if m.logger != nil {
		fields := log.Fields{
			"route":          "/api/tasks",
			"status":         status,
			"total_ms":       totalMillis,
			"tasks_returned": m.tasksReturned,
		}
		if m.fetchDuration > 0 {
			fields["fetch_ms"] = durationToMillis(m.fetchDuration)
		}
		if m.encodeDuration > 0 {
			fields["encode_ms"] = durationToMillis(m.encodeDuration)
		}
		if m.errorStage != "" {
			fields["error_stage"] = m.errorStage
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		m.logger.WithFields(fields).Info(tasksEventName)
	}

	if m.span == nil {
		return
	}
	severityText, severityNumber := severityForStatus(status, err)
	m.span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int("taskboard.tasks.returned", m.tasksReturned),
	)
	if m.errorStage != "" {
		m.span.SetAttributes(attribute.String("taskboard.tasks.error_stage", m.errorStage))
	}
	eventAttrs := []attribute.KeyValue{
		attribute.String("event.name", tasksEventName),
		attribute.String("event.domain", tasksEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
		attribute.Float64("taskboard.tasks.total_ms", totalMillis),
	}
	if m.errorStage != "" {
		eventAttrs = append(eventAttrs, attribute.String("taskboard.tasks.error_stage", m.errorStage))
	}
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}
	m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
	if severityText == "ERROR" {
		desc := m.errorStage
		if err != nil {
			desc = err.Error()
		}
		m.span.SetStatus(codes.Error, desc)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
