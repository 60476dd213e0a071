// Package expdecay implements an exponential decay model for hotness scores.
// Each key keeps one score that halves every HalfLife; shards are picked by
// xxhash so unrelated keys rarely contend.
package expdecay

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/healpix-index/internal/hotness"
)

const numShards = 64

type Tracker struct {
	HalfLife time.Duration

	now func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

var _ hotness.Interface = (*Tracker)(nil)

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

func (t *Tracker) Inc(key string) {
	if key == "" {
		return
	}
	s := t.pick(key)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.m[key]
	if c == nil {
		s.m[key] = &counter{score: 1, last: n}
		return
	}
	dt := n.Sub(c.last).Seconds()
	// apply exponential decay to the existing score before incrementing
	c.score = decay(c.score, dt, t.HalfLife.Seconds()) + 1.0
	c.last = n
}

func (t *Tracker) Score(key string) float64 {
	if key == "" {
		return 0
	}
	s := t.pick(key)
	n := t.now()

	s.mu.RLock()
	c := s.m[key]
	if c == nil {
		s.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	s.mu.RUnlock()

	// apply exponential decay to the existing score
	dt := n.Sub(last).Seconds()
	return decay(score, dt, t.HalfLife.Seconds())
}

func (t *Tracker) Reset(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		s := t.pick(key)
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
	}
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	lambda := math.Ln2 / halfLife
	// apply exponential decay (e^(-λt))
	return score * math.Exp(-lambda*dt)
}

func (t *Tracker) pick(key string) *shard {
	h := xxhash.Sum64String(key)
	idx := h & (uint64(len(t.shards)) - 1)
	return &t.shards[idx]
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}

// Top returns the n highest decayed scores. Ties break on key so the order is
// stable between calls.
func (t *Tracker) Top(n int) []hotness.Entry {
	if n <= 0 {
		return nil
	}
	now := t.now()
	hl := t.HalfLife.Seconds()
	var all []hotness.Entry
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for k, c := range s.m {
			all = append(all, hotness.Entry{Key: k, Score: decay(c.score, now.Sub(c.last).Seconds(), hl)})
		}
		s.mu.RUnlock()
	}
	slices.SortFunc(all, func(a, b hotness.Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Prune drops keys whose decayed score fell below minScore and returns how
// many were removed.
func (t *Tracker) Prune(minScore float64) int {
	now := t.now()
	hl := t.HalfLife.Seconds()
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for k, c := range s.m {
			if decay(c.score, now.Sub(c.last).Seconds(), hl) < minScore {
				delete(s.m, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
