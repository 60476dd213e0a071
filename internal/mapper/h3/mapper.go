// Package h3mapper maps between HEALPix pixels and H3 cells through their
// centres.
package h3mapper

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellForPixel returns the H3 cell at res containing the pixel centre.
func (m *Mapper) CellForPixel(nside, ipix int64, scheme healpix.Scheme, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	lon, lat, err := healpix.Pix2AngLonLat(nside, ipix, scheme.Nest())
	if err != nil {
		return "", err
	}
	return CellForLonLat(lon, lat, res)
}

// CellForLonLat returns the H3 cell at res containing (lon, lat) in degrees.
func CellForLonLat(lon, lat float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: wrapLon(lon)}, res)
	if err != nil {
		return "", fmt.Errorf("h3 index: %w", err)
	}
	return c.String(), nil
}

// PixelForCell returns the pixel containing the centre of the H3 cell.
func (m *Mapper) PixelForCell(cell string, nside int64, scheme healpix.Scheme) (int64, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return 0, fmt.Errorf("%w: parse cell: %w", healpix.ErrInvalidParameter, err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("%w: invalid h3 cell %q", healpix.ErrInvalidParameter, cell)
	}
	ll, err := h3.CellToLatLng(c)
	if err != nil {
		return 0, fmt.Errorf("h3 centre: %w", err)
	}
	return healpix.Ang2PixLonLat(nside, ll.Lng, ll.Lat, scheme.Nest())
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("%w: h3 resolution %d (must be 0..15)", healpix.ErrInvalidParameter, res)
	}
	return nil
}

// wrapLon maps [0, 360) longitudes into [-180, 180).
func wrapLon(lon float64) float64 {
	if lon >= 180 {
		return lon - 360
	}
	return lon
}
