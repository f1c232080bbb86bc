package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alekLukanen/errs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/alekLukanen/ecdsETL/elements"
)

const (
	MetricRowsRead        = "ecds_rows_read_total"
	MetricRowsWritten     = "ecds_rows_written_total"
	MetricRowsDropped     = "ecds_rows_dropped_total"
	MetricMeasureNulls    = "ecds_measure_nulls_total"
	MetricBytesFetched    = "ecds_bytes_fetched_total"
	MetricLastRunDuration = "ecds_last_run_duration_seconds"
	MetricLastRunSuccess  = "ecds_last_run_success"
)

type PusherOptions struct {
	PushgatewayURL string
	Job            string
}

// RunMetrics are the per stage counters of one process, kept on their own registry.
type RunMetrics struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	instance string

	RowsRead        *prometheus.CounterVec
	RowsWritten     *prometheus.CounterVec
	RowsDropped     *prometheus.CounterVec
	MeasureNulls    *prometheus.CounterVec
	BytesFetched    *prometheus.CounterVec
	LastRunDuration *prometheus.GaugeVec
	LastRunSuccess  *prometheus.GaugeVec

	options PusherOptions
}

func NewRunMetrics(logger *slog.Logger, options PusherOptions) *RunMetrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"stage"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"stage"})
	}

	obj := &RunMetrics{
		logger:          logger,
		registry:        prometheus.NewRegistry(),
		instance:        uuid.NewString(),
		RowsRead:        counter(MetricRowsRead, "Rows read from the raw dataset"),
		RowsWritten:     counter(MetricRowsWritten, "Rows written to the cleaned table"),
		RowsDropped:     counter(MetricRowsDropped, "Rows dropped for an unparseable reporting period"),
		MeasureNulls:    counter(MetricMeasureNulls, "Rows kept with a null measure value"),
		BytesFetched:    counter(MetricBytesFetched, "Bytes fetched from the source dataset"),
		LastRunDuration: gauge(MetricLastRunDuration, "Duration of the last run of a stage"),
		LastRunSuccess:  gauge(MetricLastRunSuccess, "1 when the last run of a stage succeeded"),
		options:         options,
	}
	obj.registry.MustRegister(
		obj.RowsRead,
		obj.RowsWritten,
		obj.RowsDropped,
		obj.MeasureNulls,
		obj.BytesFetched,
		obj.LastRunDuration,
		obj.LastRunSuccess,
	)
	return obj
}

func (obj *RunMetrics) Registry() *prometheus.Registry {
	return obj.registry
}

// Observe records the outcome of a finished stage.
func (obj *RunMetrics) Observe(result elements.RunResult) {
	stage := result.Stage
	obj.RowsRead.WithLabelValues(stage).Add(float64(result.RowsRead))
	obj.RowsWritten.WithLabelValues(stage).Add(float64(result.RowsWritten))
	obj.RowsDropped.WithLabelValues(stage).Add(float64(result.RowsDropped))
	obj.MeasureNulls.WithLabelValues(stage).Add(float64(result.MeasureNulls))
	obj.BytesFetched.WithLabelValues(stage).Add(float64(result.BytesFetched))
	obj.LastRunDuration.WithLabelValues(stage).Set(result.Duration().Seconds())
	if result.Status == elements.RunStatusSucceeded {
		obj.LastRunSuccess.WithLabelValues(stage).Set(1)
	} else {
		obj.LastRunSuccess.WithLabelValues(stage).Set(0)
	}
}

/*
* Pushes every metric to the pushgateway, replacing the metrics previously
* pushed for this job and instance. Does nothing without a gateway url.
 */
func (obj *RunMetrics) Push(ctx context.Context) error {
	if obj.options.PushgatewayURL == "" {
		return nil
	}
	err := push.New(obj.options.PushgatewayURL, obj.options.Job).
		Gatherer(obj.registry).
		Grouping("instance", obj.instance).
		PushContext(ctx)
	if err != nil {
		return errs.Wrap(err, fmt.Errorf("failed pushing metrics to %s", obj.options.PushgatewayURL))
	}
	obj.logger.Debug("pushed run metrics", slog.String("url", obj.options.PushgatewayURL))
	return nil
}
