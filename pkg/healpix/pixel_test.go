package healpix

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestAng2Pix_NorthPoleReference(t *testing.T) {
	t.Parallel()

	// the pole pixel of each northern face is the last pixel of that face
	tests := []struct {
		phi  float64
		want int64
	}{
		{0.0000000000000000, 65535},
		{1.2566370614359172, 65535},
		{2.5132741228718345, 131071},
		{3.7699111843077517, 196607},
		{5.0265482457436690, 262143},
		{6.2831853071795862, 65535},
	}
	for _, tc := range tests {
		got, err := Ang2Pix(256, 0, tc.phi, true)
		if err != nil {
			t.Fatalf("Ang2Pix(256, 0, %v): %v", tc.phi, err)
		}
		if got != tc.want {
			t.Fatalf("Ang2Pix(256, 0, %v, nest)=%d want %d", tc.phi, got, tc.want)
		}
	}
}

func TestAng2Pix_Poles(t *testing.T) {
	t.Parallel()

	const nside = 256
	npix, _ := Nside2Npix(nside)
	for _, phi := range []float64{0, 1, 2, 3, 4, 5, 6} {
		north, err := Ang2Pix(nside, 0, phi, false)
		if err != nil {
			t.Fatalf("Ang2Pix north: %v", err)
		}
		if north < 0 || north > 3 {
			t.Fatalf("north pole ring pixel=%d want one of the first 4", north)
		}
		south, err := Ang2Pix(nside, math.Pi, phi, false)
		if err != nil {
			t.Fatalf("Ang2Pix south: %v", err)
		}
		if south < npix-4 || south >= npix {
			t.Fatalf("south pole ring pixel=%d want one of the last 4", south)
		}
		southNest, err := Ang2Pix(nside, math.Pi, phi, true)
		if err != nil {
			t.Fatalf("Ang2Pix south nest: %v", err)
		}
		if southNest%(nside*nside) != 0 || southNest/(nside*nside) < 8 {
			t.Fatalf("south pole nest pixel=%d want first pixel of a southern face", southNest)
		}
	}
}

func TestPix2Ang_Reference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ipix       int64
		theta, phi float64
	}{
		{0, 1.2309594173407747, 0.7853981633974483},
		{1, 0.8410686705679303, 1.1780972450961724},
		{2, 0.8410686705679303, 0.39269908169872414},
	}
	for _, tc := range tests {
		theta, phi, err := Pix2Ang(2, tc.ipix, true)
		if err != nil {
			t.Fatalf("Pix2Ang(2, %d): %v", tc.ipix, err)
		}
		if !scalar.EqualWithinRel(theta, tc.theta, 1e-10) {
			t.Fatalf("Pix2Ang(2, %d) theta=%v want %v", tc.ipix, theta, tc.theta)
		}
		if !scalar.EqualWithinRel(phi, tc.phi, 1e-10) {
			t.Fatalf("Pix2Ang(2, %d) phi=%v want %v", tc.ipix, phi, tc.phi)
		}
	}
}

func TestPix2Ang_InvalidPixel(t *testing.T) {
	t.Parallel()

	for _, nest := range []bool{false, true} {
		for _, ipix := range []int64{-1, 48, 1000} {
			if _, _, err := Pix2Ang(2, ipix, nest); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("Pix2Ang(2, %d, %v) err=%v want ErrInvalidParameter", ipix, nest, err)
			}
		}
	}
	if _, _, err := Pix2Ang(5, 0, false); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for nside=5")
	}
}

func TestAng2Pix_InvalidAngles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		theta, phi float64
	}{
		{"negative theta", -0.1, 0},
		{"theta past pi", math.Pi + 1e-9, 0},
		{"nan theta", math.NaN(), 0},
		{"nan phi", 1, math.NaN()},
		{"inf phi", 1, math.Inf(1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Ang2Pix(16, tc.theta, tc.phi, false); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("err=%v want ErrInvalidParameter", err)
			}
		})
	}
}

func TestAng2Pix_PhiSeam(t *testing.T) {
	t.Parallel()

	for _, nest := range []bool{false, true} {
		for _, nside := range []int64{1, 2, 16, 256, 1 << 20} {
			for _, theta := range []float64{0, 0.3, math.Pi / 2, 2.0, math.Pi} {
				a, err := Ang2Pix(nside, theta, 0, nest)
				if err != nil {
					t.Fatalf("Ang2Pix phi=0: %v", err)
				}
				b, err := Ang2Pix(nside, theta, 2*math.Pi, nest)
				if err != nil {
					t.Fatalf("Ang2Pix phi=2pi: %v", err)
				}
				c, err := Ang2Pix(nside, theta, -2*math.Pi, nest)
				if err != nil {
					t.Fatalf("Ang2Pix phi=-2pi: %v", err)
				}
				if a != b || a != c {
					t.Fatalf("nside=%d theta=%v nest=%v: phi seam pixels %d %d %d differ", nside, theta, nest, a, b, c)
				}
			}
		}
	}
}

func TestPixelRoundTrip_AllPixels(t *testing.T) {
	t.Parallel()

	for _, nest := range []bool{false, true} {
		for order := 0; order <= 6; order++ {
			nside := int64(1) << order
			npix, _ := Nside2Npix(nside)
			for ipix := int64(0); ipix < npix; ipix++ {
				theta, phi, err := Pix2Ang(nside, ipix, nest)
				if err != nil {
					t.Fatalf("Pix2Ang(%d, %d, %v): %v", nside, ipix, nest, err)
				}
				back, err := Ang2Pix(nside, theta, phi, nest)
				if err != nil {
					t.Fatalf("Ang2Pix(%d, %v, %v, %v): %v", nside, theta, phi, nest, err)
				}
				if back != ipix {
					t.Fatalf("nside=%d nest=%v: ipix %d -> (%v, %v) -> %d", nside, nest, ipix, theta, phi, back)
				}
			}
		}
	}
}

func TestPixelRoundTrip_DeepOrders(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for _, order := range []int{10, 15, 20, 25, MaxOrder} {
		nside := int64(1) << order
		npix, _ := Nside2Npix(nside)
		for range 2000 {
			ipix := rng.Int64N(npix)
			for _, nest := range []bool{false, true} {
				theta, phi, err := Pix2Ang(nside, ipix, nest)
				if err != nil {
					t.Fatalf("Pix2Ang: %v", err)
				}
				back, err := Ang2Pix(nside, theta, phi, nest)
				if err != nil {
					t.Fatalf("Ang2Pix: %v", err)
				}
				if back != ipix {
					t.Fatalf("order=%d nest=%v: ipix %d round-tripped to %d", order, nest, ipix, back)
				}
			}
		}
	}
}

func TestRingOrdering_IsoLatitude(t *testing.T) {
	t.Parallel()

	const nside = 16
	npix, _ := Nside2Npix(nside)
	prevTheta := -1.0
	for ipix := range npix {
		theta, _, err := Pix2Ang(nside, ipix, false)
		if err != nil {
			t.Fatalf("Pix2Ang: %v", err)
		}
		if theta < prevTheta-1e-12 {
			t.Fatalf("ring pixel %d theta=%v went north of previous %v", ipix, theta, prevTheta)
		}
		prevTheta = theta
	}
}

func TestAng2Pix_WithinMaxPixRad(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for _, nside := range []int64{1, 8, 64, 1024} {
		maxRad, _ := MaxPixRad(nside)
		for range 5000 {
			theta := math.Acos(2*rng.Float64() - 1)
			phi := 2 * math.Pi * rng.Float64()
			for _, nest := range []bool{false, true} {
				ipix, err := Ang2Pix(nside, theta, phi, nest)
				if err != nil {
					t.Fatalf("Ang2Pix: %v", err)
				}
				center, err := Pix2Vec(nside, ipix, nest)
				if err != nil {
					t.Fatalf("Pix2Vec: %v", err)
				}
				v, _ := Ang2Vec(theta, phi)
				if d := v.Angle(center); d > maxRad*(1+1e-9) {
					t.Fatalf("nside=%d point (%v,%v) is %v rad from centre of %d; max %v", nside, theta, phi, d, ipix, maxRad)
				}
			}
		}
	}
}

func TestEqualArea_UniformSampling(t *testing.T) {
	t.Parallel()

	const (
		nside   = 2
		samples = 240000
	)
	rng := rand.New(rand.NewPCG(3, 5))
	counts := make([]int, 48)
	for range samples {
		theta := math.Acos(2*rng.Float64() - 1)
		phi := 2 * math.Pi * rng.Float64()
		ipix, err := Ang2Pix(nside, theta, phi, true)
		if err != nil {
			t.Fatalf("Ang2Pix: %v", err)
		}
		counts[ipix]++
	}
	want := float64(samples) / 48
	for ipix, c := range counts {
		if math.Abs(float64(c)-want) > 0.08*want {
			t.Fatalf("pixel %d got %d samples, want about %v", ipix, c, want)
		}
	}
}

func TestBatch_PreservesOrder(t *testing.T) {
	t.Parallel()

	const nside = 32
	ipix := []int64{5, 0, 12287, 42, 6000, 42}
	for _, nest := range []bool{false, true} {
		thetas, phis, err := Pix2AngBatch(nside, ipix, nest)
		if err != nil {
			t.Fatalf("Pix2AngBatch: %v", err)
		}
		got, err := Ang2PixBatch(nside, thetas, phis, nest)
		if err != nil {
			t.Fatalf("Ang2PixBatch: %v", err)
		}
		if diff := cmp.Diff(ipix, got); diff != "" {
			t.Fatalf("batch round trip mismatch (-want +got):\n%s", diff)
		}
		for i, p := range ipix {
			theta, phi, _ := Pix2Ang(nside, p, nest)
			if thetas[i] != theta || phis[i] != phi {
				t.Fatalf("element %d differs from scalar Pix2Ang", i)
			}
		}
	}
}

func TestBatch_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Ang2PixBatch(4, []float64{1, 2}, []float64{1}, false); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("length mismatch err=%v", err)
	}
	if _, err := Ang2PixBatch(4, []float64{1, 4}, []float64{1, 1}, false); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("bad theta err=%v", err)
	}
	if _, _, err := Pix2AngBatch(4, []int64{0, 192}, true); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("bad ipix err=%v", err)
	}
	out, err := Ang2PixBatch(4, nil, nil, true)
	if err != nil || len(out) != 0 {
		t.Fatalf("empty batch=%v,%v", out, err)
	}
}
