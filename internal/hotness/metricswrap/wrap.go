// Package metricswrap wraps a hotness tracker with Prometheus metrics and a
// sampled log line when a key first crosses the hot threshold.
package metricswrap

import (
	"fmt"
	"log/slog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/healpix-index/internal/core/observability"
	"github.com/mohammed-shakir/healpix-index/internal/hotness"
)

type Sizer interface{ Size() int }

type Options struct {
	Tier      string
	Threshold float64
	// LogSample is the fraction of threshold crossings that get logged.
	LogSample float64
	Logger    *slog.Logger
}

type WithMetrics struct {
	inner hotness.Interface
	opts  Options
}

var _ hotness.Interface = (*WithMetrics)(nil)

func New(inner hotness.Interface, opts Options) *WithMetrics {
	if opts.Tier == "" {
		opts.Tier = "pixels"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WithMetrics{inner: inner, opts: opts}
}

func (w *WithMetrics) Inc(key string) {
	before := w.inner.Score(key)
	w.inner.Inc(key)
	observability.IncHotness(w.opts.Tier)

	if th := w.opts.Threshold; th > 0 {
		score := w.inner.Score(key)
		if before < th && score >= th && shouldLog(w.opts.LogSample, key) {
			w.opts.Logger.Info("hot key above threshold",
				"event", "hotness_threshold",
				"score", score,
				"tier", w.opts.Tier,
				"key_hash", fmt.Sprintf("%08x", xx.Sum64String(key)),
			)
		}
	}
	w.observeSize()
}

func (w *WithMetrics) Score(key string) float64 {
	return w.inner.Score(key)
}

func (w *WithMetrics) Reset(keys ...string) {
	w.inner.Reset(keys...)
	w.observeSize()
}

func (w *WithMetrics) Top(n int) []hotness.Entry {
	return w.inner.Top(n)
}

func (w *WithMetrics) observeSize() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotKeys(w.opts.Tier, s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}
