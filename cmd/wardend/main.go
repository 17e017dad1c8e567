// wardend is the warden daemon: it assembles the authorization, audit,
// and compliance core from configuration and runs the background job
// scheduler until signalled. The policy and audit surfaces are consumed
// as libraries by the embedding application; wardend hosts the
// recurring work and the metrics endpoint.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mindcastle/warden"
	"github.com/mindcastle/warden/pkg/config"
	"github.com/mindcastle/warden/pkg/jobs"
	"github.com/mindcastle/warden/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)

	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := observability.NewMetrics(registry)

	core, err := warden.New(cfg, logger, metrics, nil)
	if err != nil {
		return err
	}
	defer core.Close()

	scheduler := jobs.New(logger, core.Anomalies, core.Reporter, core.Retention, cfg.AnomalyWindow)
	if err := scheduler.Register(jobs.Schedules{
		AnomalySweep:     cfg.AnomalySweepSchedule,
		ComplianceReport: cfg.ComplianceReportSchedule,
		Retention:        cfg.RetentionSchedule,
	}); err != nil {
		return fmt.Errorf("failed to register background jobs: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: ":9095", Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics server exited")
			}
		}()
		defer srv.Close()
	}

	logger.WithFields(logrus.Fields{
		"anomaly_threshold": cfg.AnomalyThreshold,
		"metrics_enabled":   cfg.MetricsEnabled,
	}).Info("wardend started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.WithField("signal", s.String()).Info("shutting down")
	return nil
}
