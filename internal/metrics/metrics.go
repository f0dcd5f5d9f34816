// Package metrics exposes reconciliation counters to Prometheus.
//
// A nil *Metrics is valid and records nothing, so callers never need to check
// whether metrics are enabled.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Hara602/gcodeSentry/internal/reconcile"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Metrics struct {
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	linksCreated   prometheus.Counter
	linksRemoved   prometheus.Counter
	dirsRemoved    prometheus.Counter
	warnings       prometheus.Counter
	devicesTracked prometheus.Gauge
	linksTracked   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcodesentry_cycles_total",
				Help: "Scan and apply cycles by result",
			},
			[]string{"result"},
		),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gcodesentry_cycle_duration_seconds",
			Help:    "Duration of a full scan and apply cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		linksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gcodesentry_links_created_total",
			Help: "Symlinks created or replaced in the mirror tree",
		}),
		linksRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "gcodesentry_links_removed_total",
			Help: "Symlinks and stray files removed from the mirror tree",
		}),
		dirsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "gcodesentry_device_dirs_removed_total",
			Help: "Device directories removed after the device went away",
		}),
		warnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "gcodesentry_warnings_total",
			Help: "Recoverable problems: link name conflicts and directories that could not be removed",
		}),
		devicesTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gcodesentry_devices",
			Help: "Devices currently mirrored",
		}),
		linksTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gcodesentry_links",
			Help: "Links currently in the mirror tree",
		}),
	}
}

// ObserveCycle records one cycle. report and the tracked counts are only used
// when err is nil.
func (m *Metrics) ObserveCycle(duration time.Duration, report reconcile.Report, devices, links int, err error) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(duration.Seconds())
	if err != nil {
		m.cycles.WithLabelValues("error").Inc()
		return
	}
	m.cycles.WithLabelValues("ok").Inc()
	m.linksCreated.Add(float64(report.LinksCreated + report.LinksReplaced))
	m.linksRemoved.Add(float64(report.LinksRemoved))
	m.dirsRemoved.Add(float64(report.DirsRemoved))
	m.warnings.Add(float64(report.Warnings()))
	m.devicesTracked.Set(float64(devices))
	m.linksTracked.Set(float64(links))
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sysutil.Log.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}()

	sysutil.Log.Info("Metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
