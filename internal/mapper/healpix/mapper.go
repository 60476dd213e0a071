// Package healpixmapper covers lon/lat boxes with HEALPix pixels.
package healpixmapper

import (
	"fmt"
	"math"

	"github.com/mohammed-shakir/healpix-index/internal/core/model"
	"github.com/mohammed-shakir/healpix-index/internal/mapper"
	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

// DefaultMaxPixels bounds a single coverage result when MaxPixels is unset.
const DefaultMaxPixels = 50000

type Mapper struct {
	MaxPixels int
}

func New(maxPixels int) *Mapper {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Mapper{MaxPixels: maxPixels}
}

var _ mapper.Interface = (*Mapper)(nil)

// PixelsForBBox returns the sorted unique pixels that contain at least one
// point of the box. Requests whose estimated result exceeds MaxPixels fail
// with mapper.ErrTooManyPixels before any pixel is computed.
func (m *Mapper) PixelsForBBox(bb model.BBox, nside int64, scheme healpix.Scheme) (model.Pixels, error) {
	if err := validateBBox(bb); err != nil {
		return nil, err
	}
	area, err := healpix.Nside2PixArea(nside, false)
	if err != nil {
		return nil, err
	}
	resol, err := healpix.Nside2Resol(nside, false)
	if err != nil {
		return nil, err
	}
	limit := m.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}

	// pixels fully inside plus the ring of pixels cut by the outline
	est := bboxSteradians(bb)/area + bboxPerimeter(bb)/resol
	if est > float64(limit) {
		return nil, fmt.Errorf("%w: ~%.0f pixels at nside %d (limit %d)", mapper.ErrTooManyPixels, est, nside, limit)
	}

	px, err := healpix.QueryLonLatBox(nside, bb.X1, bb.Y1, bb.X2, bb.Y2, scheme.Nest())
	if err != nil {
		return nil, err
	}
	if len(px) > limit {
		return nil, fmt.Errorf("%w: %d pixels at nside %d (limit %d)", mapper.ErrTooManyPixels, len(px), nside, limit)
	}
	return model.Pixels(px), nil
}

func validateBBox(bb model.BBox) error {
	for _, v := range []float64{bb.X1, bb.X2, bb.Y1, bb.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bbox has non-finite coordinate", healpix.ErrInvalidParameter)
		}
	}
	if bb.Y1 < -90 || bb.Y2 > 90 {
		return fmt.Errorf("%w: latitude must be in [-90,90]", healpix.ErrInvalidParameter)
	}
	if bb.X2 < bb.X1 || bb.Y2 < bb.Y1 {
		return fmt.Errorf("%w: bbox corners out of order", healpix.ErrInvalidParameter)
	}
	if bb.X2-bb.X1 > 360 {
		return fmt.Errorf("%w: longitude span must not exceed 360", healpix.ErrInvalidParameter)
	}
	return nil
}

func bboxSteradians(bb model.BBox) float64 {
	const d2r = math.Pi / 180
	return (bb.X2 - bb.X1) * d2r * (math.Sin(bb.Y2*d2r) - math.Sin(bb.Y1*d2r))
}

// bboxPerimeter is the outline length in radians.
func bboxPerimeter(bb model.BBox) float64 {
	const d2r = math.Pi / 180
	lon := (bb.X2 - bb.X1) * d2r
	return lon*(math.Cos(bb.Y1*d2r)+math.Cos(bb.Y2*d2r)) + 2*(bb.Y2-bb.Y1)*d2r
}
