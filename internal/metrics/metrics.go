// Package metrics exposes the pipeline events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/mdouchement/blobpress/internal/pipeline"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blobpress"

// A Reporter counts the pipeline events. It implements pipeline.Reporter.
type Reporter struct {
	objects *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	runs    *prometheus.CounterVec
	lastRun *prometheus.GaugeVec
}

var _ pipeline.Reporter = (*Reporter)(nil)

// NewReporter returns a new Reporter whose collectors are registered on the given registerer.
func NewReporter(registerer prometheus.Registerer) (*Reporter, error) {
	r := &Reporter{
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Number of objects classified by the passes.",
		}, []string{"pipeline", "outcome"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Number of bytes read and written by the compression.",
		}, []string{"pipeline", "direction"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of passes run.",
		}, []string{"pipeline", "container", "status"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last pass.",
		}, []string{"pipeline", "container"}),
	}

	for _, c := range []prometheus.Collector{r.objects, r.bytes, r.runs, r.lastRun} {
		if err := registerer.Register(c); err != nil {
			return nil, errors.Wrap(err, "could not register collector")
		}
	}
	return r, nil
}

// Report implements pipeline.Reporter.
func (r *Reporter) Report(e pipeline.Event) {
	r.objects.WithLabelValues(string(e.Pipeline), string(e.Outcome)).Inc()

	if e.Outcome != pipeline.OutcomeProcessed {
		return
	}
	r.bytes.WithLabelValues(string(e.Pipeline), "in").Add(float64(e.BytesIn))
	r.bytes.WithLabelValues(string(e.Pipeline), "out").Add(float64(e.BytesOut))
}

// ObserveRun records the completion of a pass given its report and its error.
// The last run timestamp only moves for the passes that went through the whole container.
func (r *Reporter) ObserveRun(report *pipeline.Report, err error) {
	status := "ok"
	switch {
	case report.Canceled:
		status = "canceled"
	case err != nil:
		status = "aborted"
	case report.Failed > 0:
		status = "failed"
	}

	r.runs.WithLabelValues(string(report.Kind), report.Container, status).Inc()
	if err == nil {
		r.lastRun.WithLabelValues(string(report.Kind), report.Container).Set(float64(report.FinishedAt.Unix()))
	}
}

// Handler returns the HTTP handler serving the metrics of the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
