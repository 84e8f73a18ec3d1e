// Command threatgraph runs one insider-threat analysis and writes the JSON
// report to a file or stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang/snappy"
	"github.com/joho/godotenv"

	"github.com/dd0wney/cluso-insider/pkg/config"
	"github.com/dd0wney/cluso-insider/pkg/health"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
	"github.com/dd0wney/cluso-insider/pkg/pipeline"
	"github.com/dd0wney/cluso-insider/pkg/visualization"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Config file (default ./threatgraph.yaml if present)")
	outPath := flag.String("out", "-", "Report destination, - for stdout")
	compress := flag.Bool("snappy", false, "Snappy-frame the report")
	graphOut := flag.String("graph-out", "", "Also write the graph export alone to this file")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address and keep running after the report")
	synthetic := flag.Bool("synthetic", false, "Skip the activity logs and analyse the synthetic dataset")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "threatgraph: %v\n", err)
		return 2
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	if *printConfig {
		out, err := cfg.Dump()
		if err != nil {
			fmt.Fprintf(os.Stderr, "threatgraph: %v\n", err)
			return 2
		}
		os.Stdout.Write(out)
		return 0
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	rt, err := cfg.Runtime(ctx, *synthetic, logger, reg)
	if err != nil {
		logger.Error("failed to set up analyzer", logging.Error(err))
		return 2
	}
	defer rt.Close()

	var last atomic.Pointer[pipeline.Report]
	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		hc := health.NewHealthChecker()
		hc.Register(health.Liveness, "process", health.AliveCheck)
		hc.Register(health.Readiness, "analysis", health.ReportCheck(last.Load))
		if rt.Ping != nil {
			hc.Register(health.Readiness, "ground_truth_db", health.DatabaseCheck(rt.Ping, 2*time.Second))
		}
		srv = serveMetrics(cfg.Metrics.Addr, reg, hc, logger)
	}

	report := rt.Analyzer.Run(ctx)
	last.Store(report)
	if err := writeReport(*outPath, *compress, report); err != nil {
		logger.Error("failed to write report", logging.Error(err), logging.Path(*outPath))
		return 1
	}
	if *graphOut != "" && report.GraphExport != nil {
		if err := writeGraphExport(*graphOut, report.GraphExport); err != nil {
			logger.Error("failed to write graph export", logging.Error(err), logging.Path(*graphOut))
			return 1
		}
	}

	if srv != nil {
		logger.Info("report written, serving metrics until interrupted", logging.String("addr", cfg.Metrics.Addr))
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Error(err))
		}
	}

	if !report.OK() {
		return 1
	}
	return 0
}

func serveMetrics(addr string, reg *metrics.Registry, hc *health.HealthChecker, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/health/live", hc.Handler(health.Liveness))
	mux.Handle("/health/ready", hc.Handler(health.Readiness))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.Error(err))
		}
	}()
	logger.Info("serving metrics", logging.String("addr", addr))
	return srv
}

func writeReport(path string, compress bool, report *pipeline.Report) (err error) {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if compress {
		sw := snappy.NewBufferedWriter(w)
		defer func() {
			if cerr := sw.Close(); err == nil {
				err = cerr
			}
		}()
		w = sw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeGraphExport(path string, export *visualization.GraphExport) error {
	data, err := export.ExportJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
