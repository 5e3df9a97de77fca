package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/soyunomas/sniffguard/internal/config"
	"github.com/soyunomas/sniffguard/internal/detector"
	"github.com/soyunomas/sniffguard/internal/dispatch"
	"github.com/soyunomas/sniffguard/internal/logging"
	"github.com/soyunomas/sniffguard/internal/notifier"
	"github.com/soyunomas/sniffguard/internal/report"
	"github.com/soyunomas/sniffguard/internal/sniffer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := config.CreateCommand(run)
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts config.RunOptions) error {
	// stdout carries the frame dump and the final report
	baseLogger := logging.New(os.Stderr, cfg.System.LogLevel)
	logger := logging.WithScope(baseLogger, "MAIN")

	// Opening the source first keeps setup failures fatal: nothing is
	// alerted or reported for a run that never captured.
	src, origin, err := openSource(cfg, opts, baseLogger)
	if err != nil {
		return err
	}
	defer src.Close()

	notify := notifier.NewNotifier(&cfg.Alerts, cfg.System.SensorName, logging.WithScope(baseLogger, "ALERT"))

	engineOpts := []detector.Option{
		detector.WithLogger(logging.WithScope(baseLogger, "DETECT")),
		detector.WithObserver(alertOn(notify)),
	}
	if opts.Verbose {
		engineOpts = append(engineOpts, detector.WithDumper(report.NewDumper(os.Stdout).Dump))
	}
	engine := detector.NewEngine(&cfg.Detection, engineOpts...)

	pool := dispatch.NewPool(dispatch.Options{
		Workers:   cfg.Pool.Workers,
		MaxQueued: cfg.Pool.MaxQueued,
		Drain:     cfg.Pool.DrainOnShutdown,
		Logger:    logging.WithScope(baseLogger, "POOL"),
	}, engine.NewWorker)
	ingester := dispatch.NewIngester(pool)

	if cfg.Telemetry.Enabled {
		srv := startMetrics(cfg.Telemetry.ListenAddress, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	notify.Force(fmt.Sprintf("🟢 %s started (%s, workers: %d)", cfg.System.SensorName, origin, pool.Workers()))
	captureErr := src.Run(ctx, ingester.Ingest)
	if r, ok := src.(*sniffer.Replayer); ok {
		logger.Info().Int("frames", r.Frames()).Msg("replay finished")
	}

	if ctx.Err() != nil {
		logger.Info().Msg("signal received, shutting down")
	}
	if captureErr != nil {
		logger.Error().Err(captureErr).Msg("capture stopped")
	}

	stats := pool.Close()
	summary := report.Summary{
		Tally:    engine.Tally().Snapshot(),
		Captured: ingester.Captured(),
		Pool:     stats,
	}
	if _, err := summary.WriteTo(os.Stdout); err != nil {
		logger.Error().Err(err).Msg("failed to print report")
	}

	notify.Force(summary.String())
	notify.Force(fmt.Sprintf("🔴 %s stopped", cfg.System.SensorName))
	notify.Close()

	return captureErr
}

type frameSource interface {
	Run(ctx context.Context, ingest sniffer.IngestFunc) error
	Close() error
}

func openSource(cfg *config.Config, opts config.RunOptions, baseLogger zerolog.Logger) (frameSource, string, error) {
	if opts.ReplayPath != "" {
		r, err := sniffer.OpenReplay(opts.ReplayPath, logging.WithScope(baseLogger, "REPLAY"))
		if err != nil {
			return nil, "", err
		}
		return r, "replay: " + opts.ReplayPath, nil
	}
	s, err := sniffer.Open(&cfg.Network, logging.WithScope(baseLogger, "SNIFFER"))
	if err != nil {
		return nil, "", err
	}
	return s, "interface: " + cfg.Network.Interface, nil
}

// alertOn forwards the detections worth paging about. A SYN is only
// reported the first time its source is seen.
func alertOn(n *notifier.Notifier) func(d detector.Detection) {
	return func(d detector.Detection) {
		switch d.Rule {
		case detector.RuleSynFlood:
			if d.NewSource {
				n.Alert(fmt.Sprintf("🚨 [SynFlood] SYN-only traffic from new source %s (frame %d)", d.Source, d.Seq))
			}
		case detector.RuleArpReply:
			n.Alert(fmt.Sprintf("🚨 [ArpReply] ARP reply observed, possible cache poisoning (frame %d)", d.Seq))
		case detector.RuleBlacklist:
			n.Alert(fmt.Sprintf("🚨 [Blacklist] HTTP request for %s (frame %d)", d.Domain, d.Seq))
		}
	}
}

func startMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("📊 Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Msg("⚠️ Failed to start metrics")
		}
	}()
	return srv
}
