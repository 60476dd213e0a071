// Package mapper converts sky regions into HEALPix pixel sets.
package mapper

import (
	"errors"

	"github.com/mohammed-shakir/healpix-index/internal/core/model"
	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

// ErrTooManyPixels is returned when a region would expand to more pixels
// than the mapper is allowed to return.
var ErrTooManyPixels = errors.New("mapper: region exceeds pixel limit")

type Interface interface {
	PixelsForBBox(bb model.BBox, nside int64, scheme healpix.Scheme) (model.Pixels, error)
}
