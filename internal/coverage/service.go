// Package coverage serves bbox-to-pixel lookups through a local LRU, a shared
// Redis cache and finally the mapper.
package coverage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brunomvsouza/singleflight"

	"github.com/mohammed-shakir/healpix-index/internal/cache/keys"
	"github.com/mohammed-shakir/healpix-index/internal/cache/local"
	"github.com/mohammed-shakir/healpix-index/internal/core/model"
	"github.com/mohammed-shakir/healpix-index/internal/core/observability"
	"github.com/mohammed-shakir/healpix-index/internal/hotness"
	"github.com/mohammed-shakir/healpix-index/internal/mapper"
)

const (
	TierLocal    = "local"
	TierRedis    = "redis"
	TierComputed = "computed"
)

// Store is the shared cache tier. *redisstore.Client satisfies it.
type Store interface {
	GetPixels(ctx context.Context, key string) (model.Pixels, bool, error)
	SetPixels(ctx context.Context, key string, px model.Pixels, ttl time.Duration) error
}

type Config struct {
	TTL          time.Duration
	OpTimeout    time.Duration
	HotThreshold float64
}

type Result struct {
	Key    string       `json:"key"`
	Tier   string       `json:"tier"`
	Pixels model.Pixels `json:"pixels"`
}

type Service struct {
	cfg    Config
	mapper mapper.Interface
	local  *local.Cache
	remote Store
	hot    hotness.Interface
	log    *slog.Logger

	sf singleflight.Group[string, Result]
}

// New builds a Service. remote may be nil to run without a shared cache.
func New(cfg Config, m mapper.Interface, lc *local.Cache, remote Store, hot hotness.Interface, log *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, mapper: m, local: lc, remote: remote, hot: hot, log: log}
}

// Pixels returns the coverage for req. Returned pixel slices are shared with
// the cache and must not be modified.
func (s *Service) Pixels(ctx context.Context, req model.CoverageRequest) (Result, error) {
	key := keys.Coverage(req.Scheme, req.Nside, req.BBox)
	if s.hot != nil {
		s.hot.Inc(key)
	}

	if s.local != nil {
		if px, ok := s.local.Get(key); ok {
			observability.ObserveCoverage(TierLocal, len(px))
			return Result{Key: key, Tier: TierLocal, Pixels: px}, nil
		}
	}

	// the leader's cancellation must not fail the followers
	bg := context.WithoutCancel(ctx)
	res, err, shared := s.sf.Do(key, func() (Result, error) {
		return s.load(bg, key, req)
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		s.log.DebugContext(ctx, "coverage shared", "key", key, "tier", res.Tier)
	}
	observability.ObserveCoverage(res.Tier, len(res.Pixels))
	return res, nil
}

func (s *Service) load(ctx context.Context, key string, req model.CoverageRequest) (Result, error) {
	if s.remote != nil {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		px, ok, err := s.remote.GetPixels(opCtx, key)
		cancel()
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "coverage cache read failed", "key", key, "err", err)
		case ok:
			s.remember(key, px)
			return Result{Key: key, Tier: TierRedis, Pixels: px}, nil
		}
	}

	px, err := s.mapper.PixelsForBBox(req.BBox, req.Nside, req.Scheme)
	if err != nil {
		return Result{}, err
	}
	s.remember(key, px)

	if s.remote != nil && s.isHot(key) {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		if err := s.remote.SetPixels(opCtx, key, px, s.cfg.TTL); err != nil {
			s.log.WarnContext(ctx, "coverage cache write failed", "key", key, "err", err)
		}
		cancel()
	}
	return Result{Key: key, Tier: TierComputed, Pixels: px}, nil
}

func (s *Service) remember(key string, px model.Pixels) {
	if s.local != nil {
		s.local.Add(key, px)
	}
}

func (s *Service) isHot(key string) bool {
	if s.hot == nil || s.cfg.HotThreshold <= 0 {
		return true
	}
	return s.hot.Score(key) >= s.cfg.HotThreshold
}

// IsLimitError reports whether err came from the mapper refusing an
// oversized region.
func IsLimitError(err error) bool {
	return errors.Is(err, mapper.ErrTooManyPixels)
}
