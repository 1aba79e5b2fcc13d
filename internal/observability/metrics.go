package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the client-side view of scheduler interactions:
// - Latency: how long scheduler commands and waits take
// - Traffic: submissions, terminations, status checks
// - Errors: failed scheduler commands by kind
// - Saturation: jobs still pending in a wait
type Metrics struct {
	meter metric.Meter

	// Scheduler command metrics (Latency, Traffic, Errors)
	CommandDuration    metric.Float64Histogram
	CommandsTotal      metric.Int64Counter
	CommandErrorsTotal metric.Int64Counter

	// Job metrics (Traffic)
	JobsSubmitted metric.Int64Counter
	JobsKilled    metric.Int64Counter

	// Wait metrics (Latency, Saturation)
	WaitDuration metric.Float64Histogram
	PollsTotal   metric.Int64Counter
	JobsPending  metric.Int64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("bsub")
	m := &Metrics{meter: meter}

	m.CommandDuration, err = meter.Float64Histogram(
		"scheduler_command_duration_seconds",
		metric.WithDescription("Scheduler command latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CommandsTotal, err = meter.Int64Counter(
		"scheduler_commands_total",
		metric.WithDescription("Total number of scheduler commands invoked"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CommandErrorsTotal, err = meter.Int64Counter(
		"scheduler_command_errors_total",
		metric.WithDescription("Total number of failed scheduler commands"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsSubmitted, err = meter.Int64Counter(
		"jobs_submitted_total",
		metric.WithDescription("Total number of jobs accepted by the scheduler"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsKilled, err = meter.Int64Counter(
		"jobs_killed_total",
		metric.WithDescription("Total number of termination requests accepted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.WaitDuration, err = meter.Float64Histogram(
		"wait_duration_seconds",
		metric.WithDescription("Time spent waiting for jobs or admission in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 300, 900, 1800, 3600, 14400),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PollsTotal, err = meter.Int64Counter(
		"polls_total",
		metric.WithDescription("Total number of scheduler status checks"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsPending, err = meter.Int64Gauge(
		"jobs_pending",
		metric.WithDescription("Jobs still awaited by the current wait (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordCommand records one scheduler command invocation.
func (m *Metrics) RecordCommand(ctx context.Context, op string, exitCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(opAttr(op), exitAttr(exitCode))

	m.CommandDuration.Record(ctx, durationSeconds, attrs)
	m.CommandsTotal.Add(ctx, 1, attrs)
}

// RecordCommandError records a classified scheduler failure.
func (m *Metrics) RecordCommandError(ctx context.Context, op, kind string) {
	m.CommandErrorsTotal.Add(ctx, 1, metric.WithAttributes(opAttr(op), kindAttr(kind)))
}

// RecordJobSubmitted records a job accepted by the scheduler.
func (m *Metrics) RecordJobSubmitted(ctx context.Context, queue string, chained bool) {
	m.JobsSubmitted.Add(ctx, 1, metric.WithAttributes(queueAttr(queue), chainedAttr(chained)))
}

// RecordJobsKilled records termination requests accepted by the scheduler.
func (m *Metrics) RecordJobsKilled(ctx context.Context, count int) {
	m.JobsKilled.Add(ctx, int64(count))
}

// RecordPoll records one status check and the jobs still pending after it.
func (m *Metrics) RecordPoll(ctx context.Context, op string, pending int) {
	m.PollsTotal.Add(ctx, 1, metric.WithAttributes(opAttr(op)))
	m.JobsPending.Record(ctx, int64(pending), metric.WithAttributes(opAttr(op)))
}

// RecordWait records a finished wait (success or not).
func (m *Metrics) RecordWait(ctx context.Context, op string, success bool, durationSeconds float64) {
	m.WaitDuration.Record(ctx, durationSeconds, metric.WithAttributes(opAttr(op), successAttr(success)))
}
