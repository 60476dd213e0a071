package healpix

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNest2Ring_Reference(t *testing.T) {
	t.Parallel()

	want := []int64{13, 5, 4, 0, 15, 7, 6, 1}
	got := make([]int64, len(want))
	for i := range want {
		r, err := Nest2Ring(2, int64(i))
		if err != nil {
			t.Fatalf("Nest2Ring(2, %d): %v", i, err)
		}
		got[i] = r
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Nest2Ring mismatch (-want +got):\n%s", diff)
	}
}

func TestNest2Ring_BasePixelsCoincide(t *testing.T) {
	t.Parallel()

	for ipix := range int64(12) {
		r, err := Nest2Ring(1, ipix)
		if err != nil {
			t.Fatalf("Nest2Ring(1, %d): %v", ipix, err)
		}
		if r != ipix {
			t.Fatalf("Nest2Ring(1, %d)=%d want identity at nside 1", ipix, r)
		}
	}
}

func TestRingNest_Bijection(t *testing.T) {
	t.Parallel()

	for order := 0; order <= 5; order++ {
		nside := int64(1) << order
		npix, _ := Nside2Npix(nside)
		seen := make([]bool, npix)
		for ipix := range npix {
			r, err := Nest2Ring(nside, ipix)
			if err != nil {
				t.Fatalf("Nest2Ring(%d, %d): %v", nside, ipix, err)
			}
			if seen[r] {
				t.Fatalf("nside=%d ring index %d produced twice", nside, r)
			}
			seen[r] = true

			back, err := Ring2Nest(nside, r)
			if err != nil {
				t.Fatalf("Ring2Nest(%d, %d): %v", nside, r, err)
			}
			if back != ipix {
				t.Fatalf("nside=%d nest %d -> ring %d -> nest %d", nside, ipix, r, back)
			}

			tn, pn, _ := Pix2Ang(nside, ipix, true)
			tr, pr, _ := Pix2Ang(nside, r, false)
			if tn != tr || pn != pr {
				t.Fatalf("nside=%d nest %d and ring %d have different centres", nside, ipix, r)
			}
		}
	}
}

func TestRingNest_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := Nest2Ring(4, 192); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Nest2Ring out of range err=%v", err)
	}
	if _, err := Ring2Nest(4, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Ring2Nest negative err=%v", err)
	}
	if _, err := Ring2Nest(7, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Ring2Nest bad nside err=%v", err)
	}
}
