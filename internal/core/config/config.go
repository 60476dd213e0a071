package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

type IngestCfg struct {
	Enabled     bool
	Brokers     string
	InputTopic  string
	OutputTopic string
	GroupID     string
	Nside       int64
	Scheme      string
	H3Res       int
}

type Config struct {
	Addr              string
	LogLevel          string
	LogConsole        bool
	LogSampleN        int
	DefaultNside      int64
	MaxCoveragePixels int
	RedisAddr         string
	CacheEnabled      bool
	CacheTTL          time.Duration
	CacheOpTimeout    time.Duration
	LocalCacheSize    int
	HotThreshold      float64
	HotHalfLife       time.Duration
	MetricsEnabled    bool
	MetricsAddr       string
	MetricsPath       string
	Ingest            IngestCfg
}

func FromEnv() Config {
	nside := getint64("DEFAULT_NSIDE", 64)
	if !healpix.IsNsideValid(nside) {
		nside = 64
	}
	ingestNside := getint64("INGEST_NSIDE", nside)
	if !healpix.IsNsideValid(ingestNside) {
		ingestNside = nside
	}

	h3Res := getint("INGEST_H3_RES", -1)
	if h3Res > 15 {
		h3Res = 15
	}

	maxPix := getint("MAX_COVERAGE_PIXELS", 50000)
	if maxPix <= 0 {
		maxPix = 50000
	}
	localSize := getint("LOCAL_CACHE_SIZE", 1024)
	if localSize <= 0 {
		localSize = 1024
	}

	return Config{
		Addr:              getenv("ADDR", ":8090"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogConsole:        getbool("LOG_CONSOLE", false),
		LogSampleN:        getint("LOG_SAMPLE_N", 0),
		DefaultNside:      nside,
		MaxCoveragePixels: maxPix,
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		CacheEnabled:      getbool("CACHE_ENABLED", false),
		CacheTTL:          getduration("CACHE_TTL", 10*time.Minute),
		CacheOpTimeout:    getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		LocalCacheSize:    localSize,
		HotThreshold:      getfloat("HOT_THRESHOLD", 3.0),
		HotHalfLife:       getduration("HOT_HALF_LIFE", time.Minute),
		MetricsEnabled:    getbool("METRICS_ENABLED", false),
		MetricsAddr:       getenv("METRICS_ADDR", ":9090"),
		MetricsPath:       getenv("METRICS_PATH", "/metrics"),
		Ingest: IngestCfg{
			Enabled:     getbool("INGEST_ENABLED", false),
			Brokers:     getenv("KAFKA_BROKERS", "localhost:9092"),
			InputTopic:  getenv("KAFKA_INPUT_TOPIC", "sky-events"),
			OutputTopic: getenv("KAFKA_OUTPUT_TOPIC", "sky-events-indexed"),
			GroupID:     getenv("KAFKA_GROUP_ID", "healpix-indexer"),
			Nside:       ingestNside,
			Scheme:      getenv("INGEST_SCHEME", "nested"),
			H3Res:       h3Res,
		},
	}
}

// BrokerList splits the comma-separated broker list.
func (c IngestCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
