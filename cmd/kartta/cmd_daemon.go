package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kartta/internal/daemon"
)

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run continuous surveys",
	Long: `Run kartta in daemon mode, surveying the configured accounts on a
fixed interval.

Each pass fetches every requested resource type, evaluates checks, and
records a new archive revision, so resource history and disappearances
accumulate over time.

Features:
- Prometheus metrics on /metrics
- Health checks on /health, /-/healthy, /-/ready
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  kartta daemon                       # Use intervals from kartta.yaml
  kartta daemon --interval 5m         # Survey every 5 minutes
  kartta daemon --metrics-addr :9090  # Custom metrics address`,
	RunE: runDaemonCmd,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Survey interval (overrides config)")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "", "Metrics listen address (overrides config)")
}

func runDaemonCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, shutdown, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	interval := daemonInterval
	if interval == 0 && a.cfg.Daemon.Interval != "" {
		interval, err = time.ParseDuration(a.cfg.Daemon.Interval)
		if err != nil {
			return fmt.Errorf("daemon interval: %w", err)
		}
	}
	if interval == 0 {
		interval = 15 * time.Minute
	}
	metricsAddr := daemonMetricsAddr
	if metricsAddr == "" {
		metricsAddr = a.cfg.Daemon.MetricsAddr
	}
	if metricsAddr == "" {
		metricsAddr = ":2112"
	}

	d, err := daemon.NewDaemon(daemon.Config{
		Interval:    interval,
		MetricsAddr: metricsAddr,
		Scan: func(ctx context.Context) error {
			_, err := a.runScan(ctx)
			return err
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	fmt.Fprintf(os.Stderr, "kartta daemon running (interval %s, metrics %s)\n", interval, metricsAddr)
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon error: %w", err)
	}
	return nil
}
