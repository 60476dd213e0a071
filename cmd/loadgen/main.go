// Command loadgen publishes random sky positions to the ingest topic and
// drives the HTTP API with lookups around them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/segmentio/ksuid"
)

type skyEvent struct {
	ID  string    `json:"id"`
	RA  float64   `json:"ra"`
	Dec float64   `json:"dec"`
	TS  time.Time `json:"ts"`
}

func getenv(key, def string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return def
}

// randomPosition draws a point uniformly over the sphere, in degrees.
func randomPosition(r *rand.Rand) (ra, dec float64) {
	ra = r.Float64() * 360
	z := 2*r.Float64() - 1
	dec = math.Asin(z) * 180 / math.Pi
	return ra, dec
}

func newEvent(r *rand.Rand, now time.Time) skyEvent {
	ra, dec := randomPosition(r)
	return skyEvent{ID: ksuid.New().String(), RA: ra, Dec: dec, TS: now.UTC()}
}

func produce(brokers []string, topic string, n int, r *rand.Rand, log *slog.Logger) error {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V2_5_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	for range n {
		ev := newEvent(r, time.Now())
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, _, err = prod.SendMessage(&sarama.ProducerMessage{
			Topic: topic, Key: sarama.StringEncoder(ev.ID), Value: sarama.ByteEncoder(b),
		})
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	log.Info("produced events", "topic", topic, "count", n)
	return nil
}

func query(ctx context.Context, client *http.Client, base string, n int, r *rand.Rand, log *slog.Logger) error {
	base = strings.TrimRight(base, "/")
	var errs, ok int
	start := time.Now()
	for i := range n {
		ra, dec := randomPosition(r)
		q := url.Values{}
		var path string
		if i%4 == 0 {
			path = "/v1/coverage"
			x1, y1 := math.Max(ra-1, 0), math.Max(dec-1, -90)
			q.Set("bbox", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", x1, y1, x1+2, math.Min(y1+2, 90)))
		} else {
			path = "/v1/ang2pix"
			q.Set("lon", fmt.Sprintf("%.6f", ra))
			q.Set("lat", fmt.Sprintf("%.6f", dec))
		}
		q.Set("scheme", "nested")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			errs++
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			errs++
			continue
		}
		ok++
	}
	log.Info("queries done", "ok", ok, "errors", errs, "elapsed", time.Since(start))
	return nil
}

func main() {
	events := flag.Int("events", 1000, "events to publish (0 disables)")
	queries := flag.Int("queries", 1000, "HTTP lookups to run (0 disables)")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	r := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := getenv("KAFKA_INPUT_TOPIC", "sky-events")
	base := getenv("HEALPIXD_URL", "http://localhost:8090")

	if *events > 0 {
		if err := produce(brokers, topic, *events, r, log); err != nil {
			log.Error("kafka error", "err", err)
			os.Exit(1)
		}
	}
	if *queries > 0 {
		client := &http.Client{Timeout: 5 * time.Second}
		if err := query(ctx, client, base, *queries, r, log); err != nil {
			log.Error("query error", "err", err)
			os.Exit(1)
		}
	}
}
