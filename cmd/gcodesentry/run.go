package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Hara602/gcodeSentry/internal/agent"
	"github.com/Hara602/gcodeSentry/internal/blocklist"
	"github.com/Hara602/gcodeSentry/internal/config"
	"github.com/Hara602/gcodeSentry/internal/metrics"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"github.com/Hara602/gcodeSentry/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			defer sysutil.Log.Sync()

			a, cleanup, err := buildAgent(settings, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			prior, err := a.LoadState()
			if err != nil {
				return err
			}
			if _, err := a.RunOnce(prior); err != nil {
				sysutil.Log.Error("Scan failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run continuously",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			defer sysutil.Log.Sync()

			// SIGINT/SIGTERM stop the loop after the running cycle.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var m *metrics.Metrics
			if settings.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				m = metrics.New(reg)
				go func() {
					if err := metrics.Serve(ctx, settings.MetricsAddr, reg); err != nil {
						sysutil.Log.Error("Metrics endpoint failed", zap.Error(err))
					}
				}()
			}

			a, cleanup, err := buildAgent(settings, m)
			if err != nil {
				return err
			}
			defer cleanup()

			var wake <-chan struct{}
			if settings.Watch {
				devWatcher := watcher.New(settings.MountBase)
				events, err := devWatcher.Start()
				if err != nil {
					sysutil.Log.Warn("Device watcher unavailable, polling only", zap.Error(err))
				} else {
					defer devWatcher.Stop()
					wake = events
				}
			}

			return a.RunForever(ctx, wake)
		},
	}
}

// buildAgent wires the agent from settings. cleanup releases the blocklist
// database.
func buildAgent(settings config.Settings, m *metrics.Metrics) (*agent.Agent, func(), error) {
	opts := []agent.Option{
		agent.WithScanner(newScanner(settings)),
		agent.WithMetrics(m),
	}
	cleanup := func() {}

	if settings.BlocklistDB != "" {
		db, err := blocklist.Open(settings.BlocklistDB)
		if err != nil {
			return nil, nil, fmt.Errorf("blocklist: %w", err)
		}
		opts = append(opts, agent.WithBlocklist(db))
		cleanup = func() { db.Close() }
	}
	return agent.New(settings, opts...), cleanup, nil
}
