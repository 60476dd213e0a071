package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mohammed-shakir/healpix-index/internal/cache/local"
	"github.com/mohammed-shakir/healpix-index/internal/cache/redisstore"
	"github.com/mohammed-shakir/healpix-index/internal/core/config"
	"github.com/mohammed-shakir/healpix-index/internal/core/health"
	"github.com/mohammed-shakir/healpix-index/internal/core/observability"
	"github.com/mohammed-shakir/healpix-index/internal/core/router"
	"github.com/mohammed-shakir/healpix-index/internal/core/server"
	"github.com/mohammed-shakir/healpix-index/internal/coverage"
	"github.com/mohammed-shakir/healpix-index/internal/hotness/expdecay"
	"github.com/mohammed-shakir/healpix-index/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/healpix-index/internal/ingest/kafka"
	"github.com/mohammed-shakir/healpix-index/internal/logger"
	h3mapper "github.com/mohammed-shakir/healpix-index/internal/mapper/h3"
	healpixmapper "github.com/mohammed-shakir/healpix-index/internal/mapper/healpix"
	"github.com/mohammed-shakir/healpix-index/internal/metrics"
)

var Version = "dev"

// pruneBelow is the decayed score under which hotness entries are dropped.
const pruneBelow = 0.01

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "healpixd",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := newMetrics(cfg)
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting healpixd",
		"addr", cfg.Addr,
		"version", Version,
		"default_nside", cfg.DefaultNside,
		"cache", cfg.CacheEnabled,
		"ingest", cfg.Ingest.Enabled)

	tracker := expdecay.New(cfg.HotHalfLife)
	hot := metricswrap.New(tracker, metricswrap.Options{
		Tier:      "pixels",
		Threshold: cfg.HotThreshold,
		LogSample: 0.01,
		Logger:    appLog.With("component", "hotness"),
	})

	lc, err := local.New(cfg.LocalCacheSize)
	if err != nil {
		appLog.Error("local cache init failed", "err", err)
		return 1
	}

	var remote coverage.Store
	if cfg.CacheEnabled {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		rc, err := redisstore.New(pingCtx, cfg.RedisAddr)
		cancel()
		if err != nil {
			appLog.Error("redis init failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		remote = rc
	}

	svc := coverage.New(coverage.Config{
		TTL:          cfg.CacheTTL,
		OpTimeout:    cfg.CacheOpTimeout,
		HotThreshold: cfg.HotThreshold,
	}, healpixmapper.New(cfg.MaxCoveragePixels), lc, remote, hot, appLog.With("component", "coverage"))

	icfg, err := kafka.ConfigFrom(cfg.Ingest)
	if err != nil {
		appLog.Error("ingest config invalid", "err", err)
		return 1
	}
	ingest := kafka.New(icfg, kafka.Options{
		Logger:   appLog.With("component", "ingest"),
		Register: p.Registerer(),
		Hotness:  hot,
	})
	if err := ingest.Start(ctx); err != nil {
		appLog.Error("ingest start failed", "err", err)
		return 1
	}
	defer ingest.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := p.Serve(ctx, appLog); err != nil {
			appLog.Error("metrics server exited", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		prune(ctx, tracker, cfg.HotHalfLife, appLog)
	}()

	deps := router.Deps{
		Logger:       appLog,
		DefaultNside: cfg.DefaultNside,
		Coverage:     svc,
		H3:           h3mapper.New(),
		Hotness:      hot,
	}
	opts := server.Options{
		MetricsHandler: p.Handler(),
		Readiness:      []health.ReadinessReporter{ingest},
	}
	err = server.Run(ctx, cfg, appLog, deps, opts)
	stop()
	wg.Wait()
	if err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func prune(ctx context.Context, t *expdecay.Tracker, every time.Duration, log *slog.Logger) {
	if every <= 0 {
		every = time.Minute
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := t.Prune(pruneBelow); n > 0 {
				log.Debug("hotness pruned", "removed", n, "remaining", t.Size())
			}
		}
	}
}

// newMetrics builds the registry provider and registers the package
// instruments with it only when metrics are enabled.
func newMetrics(cfg config.Config) *metrics.Provider {
	p := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Addr:    cfg.MetricsAddr,
		Path:    cfg.MetricsPath,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(p.Registerer(), cfg.MetricsEnabled)
	return p
}
