package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yairfalse/kartta/telemetry"
)

// ScanFunc runs one full survey pass.
type ScanFunc func(ctx context.Context) error

// Config holds daemon configuration
type Config struct {
	Interval    time.Duration
	MetricsAddr string
	Scan        ScanFunc
}

// Daemon runs surveys on a fixed interval and serves metrics.
type Daemon struct {
	interval    time.Duration
	metricsAddr string
	scan        ScanFunc
	log         *telemetry.Logger

	startTime time.Time
	scanCount atomic.Int64
	lastError atomic.Value // string
}

// NewDaemon creates a new daemon instance
func NewDaemon(cfg Config) (*Daemon, error) {
	if cfg.Scan == nil {
		return nil, errors.New("daemon requires a scan function")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":2112"
	}
	return &Daemon{
		interval:    cfg.Interval,
		metricsAddr: cfg.MetricsAddr,
		scan:        cfg.Scan,
		log:         telemetry.NewLogger("daemon"),
		startTime:   time.Now(),
	}, nil
}

// Run blocks until the context is cancelled or one of the actors fails.
// It drives two actors: the survey ticker and the metrics HTTP server.
func (d *Daemon) Run(ctx context.Context) error {
	var g run.Group

	tickCtx, tickCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return d.loop(tickCtx)
	}, func(error) {
		tickCancel()
	})

	listener, err := net.Listen("tcp", d.metricsAddr)
	if err != nil {
		tickCancel()
		return fmt.Errorf("metrics listener on %s: %w", d.metricsAddr, err)
	}
	server := &http.Server{
		Handler:           d.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Add(func() error {
		d.log.WithContext(ctx).Info().
			Str("addr", listener.Addr().String()).
			Msg("metrics server listening")
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}, func(error) {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutCtx)
	})

	return g.Run()
}

// loop runs an immediate survey, then one per interval.
func (d *Daemon) loop(ctx context.Context) error {
	d.runOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	start := time.Now()
	err := d.scan(ctx)
	d.scanCount.Add(1)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		d.lastError.Store(err.Error())
		d.log.WithContext(ctx).Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("survey failed")
		return
	}
	d.lastError.Store("")
	d.log.WithContext(ctx).Info().
		Dur("duration", time.Since(start)).
		Int64("runs", d.scanCount.Load()).
		Msg("survey pass complete")
}

func (d *Daemon) handler() http.Handler {
	mux := http.NewServeMux()
	if telemetry.PrometheusRegistry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(
			telemetry.PrometheusRegistry,
			promhttp.HandlerOpts{},
		))
	}
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/-/healthy", d.handleHealth)
	mux.HandleFunc("/-/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})
	return mux
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.Health())
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	lastErr, _ := d.lastError.Load().(string)
	status := "healthy"
	if lastErr != "" {
		status = "degraded"
	}
	return HealthStatus{
		Status:    status,
		Uptime:    int64(time.Since(d.startTime).Seconds()),
		ScanCount: d.scanCount.Load(),
		LastError: lastErr,
	}
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status    string `json:"status"`
	Uptime    int64  `json:"uptime_seconds"`
	ScanCount int64  `json:"scan_count"`
	LastError string `json:"last_error,omitempty"`
}

// ScanCount returns total survey passes run
func (d *Daemon) ScanCount() int64 {
	return d.scanCount.Load()
}
