// Package cache holds the storage contract and wire format for cached
// coverage results.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/healpix-index/internal/core/model"
)

type Interface interface {
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// codecVersion prefixes every encoded pixel list.
const codecVersion = 1

var ErrCorrupt = errors.New("cache: corrupt pixel payload")

// EncodePixels packs a sorted pixel list as a version byte, a uvarint count
// and uvarint deltas between consecutive pixels.
func EncodePixels(px model.Pixels) []byte {
	buf := make([]byte, 0, 1+binary.MaxVarintLen64*(1+len(px)/4))
	buf = append(buf, codecVersion)
	buf = binary.AppendUvarint(buf, uint64(len(px)))
	var prev int64
	for _, p := range px {
		buf = binary.AppendUvarint(buf, uint64(p-prev))
		prev = p
	}
	return buf
}

func DecodePixels(b []byte) (model.Pixels, error) {
	if len(b) == 0 || b[0] != codecVersion {
		return nil, fmt.Errorf("%w: bad version", ErrCorrupt)
	}
	b = b[1:]
	n, k := binary.Uvarint(b)
	if k <= 0 || n > uint64(len(b)) {
		return nil, fmt.Errorf("%w: bad length", ErrCorrupt)
	}
	b = b[k:]
	out := make(model.Pixels, 0, n)
	var prev int64
	for range n {
		d, k := binary.Uvarint(b)
		if k <= 0 {
			return nil, fmt.Errorf("%w: truncated at %d", ErrCorrupt, len(out))
		}
		b = b[k:]
		prev += int64(d)
		out = append(out, prev)
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(b))
	}
	return out, nil
}
