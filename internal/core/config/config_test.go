package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Addr != ":8090" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.DefaultNside != 64 || cfg.Ingest.Nside != 64 {
		t.Fatalf("nside defaults=%d/%d want 64", cfg.DefaultNside, cfg.Ingest.Nside)
	}
	if cfg.CacheEnabled || cfg.Ingest.Enabled || cfg.MetricsEnabled {
		t.Fatalf("optional subsystems must default to disabled: %+v", cfg)
	}
	if cfg.Ingest.H3Res != -1 {
		t.Fatalf("H3Res=%d want -1 (disabled)", cfg.Ingest.H3Res)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DEFAULT_NSIDE", "256")
	t.Setenv("INGEST_NSIDE", "1024")
	t.Setenv("INGEST_SCHEME", "ring")
	t.Setenv("INGEST_H3_RES", "22")
	t.Setenv("CACHE_ENABLED", "yes")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("HOT_THRESHOLD", "0.5")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")

	cfg := FromEnv()
	if cfg.DefaultNside != 256 || cfg.Ingest.Nside != 1024 {
		t.Fatalf("nside=%d ingest=%d", cfg.DefaultNside, cfg.Ingest.Nside)
	}
	if cfg.Ingest.Scheme != "ring" {
		t.Fatalf("scheme=%q", cfg.Ingest.Scheme)
	}
	if cfg.Ingest.H3Res != 15 {
		t.Fatalf("H3Res=%d want clamp to 15", cfg.Ingest.H3Res)
	}
	if !cfg.CacheEnabled || cfg.CacheTTL != 90*time.Second || cfg.HotThreshold != 0.5 {
		t.Fatalf("cache cfg=%+v", cfg)
	}
	if got, want := cfg.Ingest.BrokerList(), []string{"a:9092", "b:9092"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("brokers=%v want %v", got, want)
	}
}

func TestFromEnv_InvalidNsideFallsBack(t *testing.T) {
	t.Setenv("DEFAULT_NSIDE", "100")
	t.Setenv("INGEST_NSIDE", "-4")
	t.Setenv("MAX_COVERAGE_PIXELS", "0")

	cfg := FromEnv()
	if cfg.DefaultNside != 64 {
		t.Fatalf("DefaultNside=%d want fallback 64", cfg.DefaultNside)
	}
	if cfg.Ingest.Nside != 64 {
		t.Fatalf("Ingest.Nside=%d want fallback to default", cfg.Ingest.Nside)
	}
	if cfg.MaxCoveragePixels != 50000 {
		t.Fatalf("MaxCoveragePixels=%d", cfg.MaxCoveragePixels)
	}
}
