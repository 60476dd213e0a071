// Package healpix implements HEALPix (Hierarchical Equal Area isoLatitude
// Pixelization) index arithmetic: resolution/pixel-count conversions, pixel
// area and resolution, and the mapping between sky coordinates and pixel
// indices in both the RING and NESTED ordering schemes.
//
// Every function is pure and safe for concurrent use. Invalid arguments are
// reported as errors wrapping ErrInvalidParameter.
package healpix

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

const (
	// MaxOrder is the deepest supported resolution order; 12*4^MaxOrder
	// pixels still fit into an int64.
	MaxOrder = 29
	// MaxNside is the nside corresponding to MaxOrder.
	MaxNside int64 = 1 << MaxOrder
)

// ErrInvalidParameter is wrapped by every validation failure in this package.
var ErrInvalidParameter = errors.New("healpix: invalid parameter")

const (
	halfPi    = math.Pi / 2
	twoPi     = 2 * math.Pi
	invHalfPi = 2 / math.Pi
	radToDeg  = 180 / float64(math.Pi)
	degToRad  = float64(math.Pi) / 180
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// IsNsideValid reports whether nside is a positive power of two no larger
// than MaxNside.
func IsNsideValid(nside int64) bool {
	return nside > 0 && nside <= MaxNside && nside&(nside-1) == 0
}

// IsNpixValid reports whether npix is the pixel count of a valid nside.
func IsNpixValid(npix int64) bool {
	_, err := Npix2Nside(npix)
	return err == nil
}

func checkNside(nside int64) error {
	if !IsNsideValid(nside) {
		return invalidf("nside %d must be a power of two in [1, %d]", nside, MaxNside)
	}
	return nil
}

// Nside2Order returns log2(nside).
func Nside2Order(nside int64) (int, error) {
	if err := checkNside(nside); err != nil {
		return 0, err
	}
	return bits.TrailingZeros64(uint64(nside)), nil
}

// Order2Nside returns 2^order.
func Order2Nside(order int) (int64, error) {
	if order < 0 || order > MaxOrder {
		return 0, invalidf("order %d outside [0, %d]", order, MaxOrder)
	}
	return int64(1) << order, nil
}

// Nside2Npix returns the number of pixels, 12*nside^2.
func Nside2Npix(nside int64) (int64, error) {
	if err := checkNside(nside); err != nil {
		return 0, err
	}
	return 12 * nside * nside, nil
}

// Npix2Nside returns the nside such that 12*nside^2 == npix.
func Npix2Nside(npix int64) (int64, error) {
	if npix <= 0 || npix%12 != 0 {
		return 0, invalidf("npix %d is not a multiple of 12", npix)
	}
	q := npix / 12
	nside := isqrt(q)
	if nside*nside != q {
		return 0, invalidf("npix %d: npix/12 is not a perfect square", npix)
	}
	if !IsNsideValid(nside) {
		return 0, invalidf("npix %d yields nside %d which is not a power of two", npix, nside)
	}
	return nside, nil
}

// Nside2PixArea returns the area of a single pixel in steradians, or in
// square degrees when degrees is set.
func Nside2PixArea(nside int64, degrees bool) (float64, error) {
	npix, err := Nside2Npix(nside)
	if err != nil {
		return 0, err
	}
	area := 4 * math.Pi / float64(npix)
	if degrees {
		area = rad2deg(rad2deg(area))
	}
	return area, nil
}

// Nside2Resol returns the approximate pixel size, sqrt(pixel area), in
// radians, or in arcminutes when arcmin is set.
func Nside2Resol(nside int64, arcmin bool) (float64, error) {
	area, err := Nside2PixArea(nside, false)
	if err != nil {
		return 0, err
	}
	resol := math.Sqrt(area)
	if arcmin {
		resol = rad2deg(resol) * 60
	}
	return resol, nil
}

// MaxPixRad returns the maximum angular distance in radians between a pixel
// centre and its corners.
func MaxPixRad(nside int64) (float64, error) {
	if err := checkNside(nside); err != nil {
		return 0, err
	}
	va := vecFromZPhi(2.0/3.0, math.Pi/float64(4*nside))
	t1 := 1 - 1/float64(nside)
	t1 *= t1
	vb := vecFromZPhi(1-t1/3, 0)
	return va.Angle(vb), nil
}

func rad2deg(x float64) float64 { return x * radToDeg }

func deg2rad(x float64) float64 { return x * degToRad }

func isqrt(v int64) int64 {
	if v <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(v)))
	for r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}
