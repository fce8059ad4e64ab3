package metrics

import (
	"context"
	"fmt"
	"time"

	"larkdigest/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "larkdigest"
	JobName   = "larkdigest"
)

// Recorder holds the gauges describing the most recent run. A batch job has
// nothing to scrape it, so values are pushed to a Pushgateway instead.
type Recorder struct {
	registry *prometheus.Registry

	sources          prometheus.Gauge
	failedSources    prometheus.Gauge
	entries          prometheus.Gauge
	kept             prometheus.Gauge
	dropped          prometheus.Gauge
	filterErrors     prometheus.Gauge
	summaryErrors    prometheus.Gauge
	deliveryFailures prometheus.Gauge
	duration         prometheus.Gauge
	lastRun          prometheus.Gauge
}

func NewRecorder() *Recorder {
	gauge := func(name string, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	r := &Recorder{
		registry:         prometheus.NewRegistry(),
		sources:          gauge("sources", "Feed sources configured for the last run."),
		failedSources:    gauge("failed_sources", "Feed sources that could not be read in the last run."),
		entries:          gauge("entries", "Entries read in the last run."),
		kept:             gauge("kept_entries", "Entries kept in the last run."),
		dropped:          gauge("dropped_entries", "Entries dropped by the relevance filter in the last run."),
		filterErrors:     gauge("filter_errors", "Relevance checks that failed and kept their entry."),
		summaryErrors:    gauge("summary_errors", "Summaries replaced by the fallback text."),
		deliveryFailures: gauge("delivery_failures", "Notifiers that failed to deliver."),
		duration:         gauge("run_duration_seconds", "Duration of the last run."),
		lastRun:          gauge("last_run_timestamp_seconds", "Unix time the last run finished."),
	}

	r.registry.MustRegister(
		r.sources,
		r.failedSources,
		r.entries,
		r.kept,
		r.dropped,
		r.filterErrors,
		r.summaryErrors,
		r.deliveryFailures,
		r.duration,
		r.lastRun,
	)

	return r
}

func (r *Recorder) Observe(report pipeline.Report, finishedAt time.Time) {
	r.sources.Set(float64(report.Sources))
	r.failedSources.Set(float64(report.FailedSources))
	r.entries.Set(float64(report.Entries))
	r.kept.Set(float64(report.Kept))
	r.dropped.Set(float64(report.Dropped))
	r.filterErrors.Set(float64(report.FilterErrors))
	r.summaryErrors.Set(float64(report.SummaryErrors))
	r.deliveryFailures.Set(float64(report.DeliveryFailures))
	r.duration.Set(report.Duration.Seconds())
	r.lastRun.Set(float64(finishedAt.Unix()))
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push replaces this job's metrics on the Pushgateway.
func (r *Recorder) Push(ctx context.Context, gatewayURL string) error {
	if err := push.New(gatewayURL, JobName).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics (URL = %s): %w", gatewayURL, err)
	}

	return nil
}
