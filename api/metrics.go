package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"showcase-web/domain"
)

const (
	tracerName             = "showcase-web/api"
	tasksSpanName          = "showcase.tasks.request"
	tasksEventName         = "tasks.request"
	tasksEventDomain       = "showcase"
	observabilityEventName = "observability.event"
)

type taskRequestMetrics struct {
	logger          *log.Logger
	span            trace.Span
	start           time.Time
	route           string
	operation       string
	storageDuration time.Duration
	filter          domain.Filter
	tasksReturned   int
	errorStage      string
}

// newTaskRequestMetrics starts the request span. The returned context carries
// the span and should be used for downstream calls.
func newTaskRequestMetrics(ctx context.Context, logger *log.Logger, route, operation string) (*taskRequestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, tasksSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &taskRequestMetrics{
		logger:    logger,
		span:      span,
		start:     time.Now(),
		route:     route,
		operation: operation,
	}, ctx
}

func (m *taskRequestMetrics) ObserveStorage(d time.Duration) {
	if d <= 0 {
		return
	}
	m.storageDuration = d
}

func (m *taskRequestMetrics) SetFilter(f domain.Filter) {
	m.filter = f
}

func (m *taskRequestMetrics) SetTasksReturned(n int) {
	if n < 0 {
		n = 0
	}
	m.tasksReturned = n
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log ends the span and emits one observability event to both the span and
// the logger.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.String("showcase.tasks.operation", m.operation),
		attribute.Float64("showcase.tasks.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int("showcase.tasks.tasks_returned", m.tasksReturned),
	}
	if m.storageDuration > 0 {
		attrs = append(attrs, attribute.Float64("showcase.tasks.storage_ms", durationToMillis(m.storageDuration)))
	}
	if m.filter != "" {
		attrs = append(attrs, attribute.String("showcase.tasks.filter", string(m.filter)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("showcase.tasks.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	severityText, severityNumber := severityForStatus(status, err)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", tasksEventName),
			attribute.String("event.domain", tasksEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent(observabilityEventName, trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      tasksEventName,
		"event.domain":    tasksEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrMap,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.IsValid() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityText), observabilityEventName)
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func levelForSeverity(text string) log.Level {
	switch text {
	case "ERROR":
		return log.ErrorLevel
	case "WARN":
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
