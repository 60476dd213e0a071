// Package kafka runs the sky-event indexer: it consumes positions from one
// topic, tags each with its HEALPix pixel and republishes it keyed by pixel.
package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"

	"github.com/mohammed-shakir/healpix-index/internal/cache/keys"
	"github.com/mohammed-shakir/healpix-index/internal/core/observability"
	h3mapper "github.com/mohammed-shakir/healpix-index/internal/mapper/h3"
	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

type HotnessIncrementer interface {
	Inc(key string)
}

type Runner struct {
	log       *slog.Logger
	cfg       Config
	producer  sarama.SyncProducer
	ownsProd  bool
	ms        *metricSet
	seen      *idDedupe
	hot       HotnessIncrementer
	now       func() time.Time
	assigned  atomic.Bool
	assignMu  sync.RWMutex
	assign    map[int32]struct{}
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	newClient func(Config) (sarama.ConsumerGroup, error)
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
	Hotness  HotnessIncrementer
	// Producer overrides the sync producer built in Start.
	Producer sarama.SyncProducer
}

func New(cfg Config, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:       opts.Logger,
		cfg:       cfg,
		producer:  opts.Producer,
		ms:        newMetricSet(opts.Register),
		seen:      newIDDedupe(8192),
		hot:       opts.Hotness,
		now:       time.Now,
		assign:    map[int32]struct{}{},
		newClient: newConsumerGroup,
	}
}

func saramaConfig(c Config) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "healpixd"
	cfg.Consumer.Group.Session.Timeout = c.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.RebalanceTimeout
	if c.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Retry.Max = 5
	return cfg
}

func newConsumerGroup(c Config) (sarama.ConsumerGroup, error) {
	return sarama.NewConsumerGroup(c.Brokers, c.GroupID, saramaConfig(c))
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("ingest runner disabled")
		return nil
	}

	if r.producer == nil {
		p, err := sarama.NewSyncProducer(r.cfg.Brokers, saramaConfig(r.cfg))
		if err != nil {
			return fmt.Errorf("sync producer: %w", err)
		}
		r.producer = p
		r.ownsProd = true
	}

	group, err := r.newClient(r.cfg)
	if err != nil {
		r.closeProducer()
		return fmt.Errorf("consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			claims := sess.Claims()
			r.assignMu.Lock()
			r.assigned.Store(true)
			r.assign = map[int32]struct{}{}
			for _, parts := range claims {
				for _, p := range parts {
					r.assign[p] = struct{}{}
				}
			}
			r.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(false)
			r.assign = map[int32]struct{}{}
			r.assignMu.Unlock()
		},
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.InputTopic}, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka ingest runner started",
		"input", r.cfg.InputTopic, "output", r.cfg.OutputTopic,
		"group", r.cfg.GroupID, "brokers", r.cfg.Brokers,
		"nside", r.cfg.Nside, "scheme", r.cfg.Scheme.String())
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.closeProducer()
	r.log.Info("kafka ingest runner stopped")
}

func (r *Runner) closeProducer() {
	if !r.ownsProd || r.producer == nil {
		return
	}
	if err := r.producer.Close(); err != nil {
		r.log.Error("kafka producer close", "err", err)
	}
	r.producer = nil
	r.ownsProd = false
}

// Readiness reports ready once partitions are assigned. A disabled runner is
// always ready.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.cfg.Enabled {
		return true, nil
	}
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// handleMessage indexes one event. Malformed events are counted and skipped;
// only publish failures are returned so the message is redelivered.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	if !msg.Timestamp.IsZero() {
		r.ms.lagGauge.Set(r.now().Sub(msg.Timestamp).Seconds())
	}

	out, err := r.index(msg)
	if err != nil {
		r.ms.msgs.WithLabelValues("invalid").Inc()
		r.log.WarnContext(ctx, "skipping invalid event",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	if !r.seen.firstSeen(out.ID) {
		r.ms.msgs.WithLabelValues("duplicate").Inc()
		return nil
	}

	if err := r.publish(out); err != nil {
		r.seen.forget(out.ID)
		r.ms.msgs.WithLabelValues("error").Inc()
		return err
	}

	if r.hot != nil {
		r.hot.Inc(keys.Pixel(r.cfg.Scheme, r.cfg.Nside, out.Ipix))
	}
	r.ms.msgs.WithLabelValues("ok").Inc()
	r.ms.proc.Observe(time.Since(start).Seconds())
	return nil
}

func (r *Runner) index(msg *sarama.ConsumerMessage) (IndexedEvent, error) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return IndexedEvent{}, errors.Join(errInvalidEvent, fmt.Errorf("decode: %w", err))
	}
	ra, dec, err := ev.Validate()
	if err != nil {
		return IndexedEvent{}, err
	}

	ipix, err := healpix.Ang2PixLonLat(r.cfg.Nside, ra, dec, r.cfg.Scheme.Nest())
	observability.ObserveEngineOp("ang2pix", err)
	if err != nil {
		return IndexedEvent{}, errors.Join(errInvalidEvent, err)
	}

	out := IndexedEvent{
		ID:        ev.ID,
		RA:        ra,
		Dec:       dec,
		TS:        ev.TS,
		Nside:     r.cfg.Nside,
		Scheme:    r.cfg.Scheme.String(),
		Ipix:      ipix,
		IndexedAt: r.now().UTC(),
	}
	if out.ID == "" {
		out.ID = recordID(msg)
	}
	if out.TS.IsZero() {
		out.TS = msg.Timestamp
	}
	if r.cfg.H3Res >= 0 {
		cell, err := h3mapper.CellForLonLat(ra, dec, r.cfg.H3Res)
		if err != nil {
			return IndexedEvent{}, errors.Join(errInvalidEvent, err)
		}
		out.H3Cell = cell
	}
	return out, nil
}

// recordID derives a ksuid from the record's topic, partition and offset so a
// redelivered event without an id maps to the same id.
func recordID(msg *sarama.ConsumerMessage) string {
	var payload [16]byte
	binary.BigEndian.PutUint32(payload[0:4], uint32(xxhash.Sum64String(msg.Topic)))
	binary.BigEndian.PutUint32(payload[4:8], uint32(msg.Partition))
	binary.BigEndian.PutUint64(payload[8:16], uint64(msg.Offset))
	id, err := ksuid.FromParts(msg.Timestamp, payload[:])
	if err != nil {
		return ksuid.New().String()
	}
	return id.String()
}

func (r *Runner) publish(ev IndexedEvent) error {
	if r.producer == nil {
		return errors.New("kafka ingest: producer not started")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	pm := &sarama.ProducerMessage{
		Topic: r.cfg.OutputTopic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.Ipix, 10)),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("healpix-scheme"), Value: []byte(ev.Scheme)},
			{Key: []byte("healpix-nside"), Value: []byte(strconv.FormatInt(ev.Nside, 10))},
		},
	}
	if _, _, err := r.producer.SendMessage(pm); err != nil {
		return fmt.Errorf("publish %s: %w", ev.ID, err)
	}
	return nil
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
