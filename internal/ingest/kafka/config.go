package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/healpix-index/internal/core/config"
	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

type Config struct {
	Enabled bool

	Brokers     []string
	InputTopic  string
	OutputTopic string
	GroupID     string

	Nside  int64
	Scheme healpix.Scheme
	// H3Res below zero disables the H3 crosswalk.
	H3Res int

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
}

// ConfigFrom validates the environment-level ingest settings.
func ConfigFrom(c config.IngestCfg) (Config, error) {
	scheme, err := healpix.ParseScheme(c.Scheme)
	if err != nil {
		return Config{}, fmt.Errorf("ingest scheme: %w", err)
	}
	if !healpix.IsNsideValid(c.Nside) {
		return Config{}, fmt.Errorf("ingest nside %d: %w", c.Nside, healpix.ErrInvalidParameter)
	}
	out := Config{
		Enabled:          c.Enabled,
		Brokers:          c.BrokerList(),
		InputTopic:       c.InputTopic,
		OutputTopic:      c.OutputTopic,
		GroupID:          c.GroupID,
		Nside:            c.Nside,
		Scheme:           scheme,
		H3Res:            c.H3Res,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
	}
	if out.Enabled {
		if len(out.Brokers) == 0 {
			return Config{}, errors.New("ingest: at least one broker is required")
		}
		if out.InputTopic == "" || out.OutputTopic == "" {
			return Config{}, errors.New("ingest: input and output topics are required")
		}
		if out.InputTopic == out.OutputTopic {
			return Config{}, errors.New("ingest: input and output topics must differ")
		}
	}
	return out, nil
}
