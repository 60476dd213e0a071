package cache

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/healpix-index/internal/core/model"
)

func TestPixelCodec_RoundTrip(t *testing.T) {
	cases := []model.Pixels{
		{},
		{0},
		{3, 4, 5, 1000, 1 << 40, 3<<58 - 1},
	}
	for _, px := range cases {
		got, err := DecodePixels(EncodePixels(px))
		if err != nil {
			t.Fatalf("decode %v: %v", px, err)
		}
		if diff := cmp.Diff(px, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestPixelCodec_DenseListIsCompact(t *testing.T) {
	px := make(model.Pixels, 1000)
	for i := range px {
		px[i] = int64(100000 + i)
	}
	// one byte per delta after the first pixel
	if n := len(EncodePixels(px)); n > 1010 {
		t.Fatalf("encoded size=%d", n)
	}
}

func TestDecodePixels_Corrupt(t *testing.T) {
	good := EncodePixels(model.Pixels{1, 2, 3})
	for name, b := range map[string][]byte{
		"empty":    nil,
		"version":  append([]byte{9}, good[1:]...),
		"truncate": good[:len(good)-1],
		"trailing": append(append([]byte{}, good...), 0),
	} {
		if _, err := DecodePixels(b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: err=%v want ErrCorrupt", name, err)
		}
	}
}
