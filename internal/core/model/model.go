// Package model defines core domain types shared across the service.
package model

import (
	"fmt"

	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching wfs/wms bbox format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}

// Pixels is a sorted, de-duplicated list of HEALPix pixel indices.
type Pixels []int64

type CoverageRequest struct {
	BBox   BBox
	Nside  int64
	Scheme healpix.Scheme
}

// PixelInfo describes one pixel and its centre.
type PixelInfo struct {
	Nside  int64          `json:"nside"`
	Scheme healpix.Scheme `json:"scheme"`
	Ipix   int64          `json:"ipix"`
	Theta  float64        `json:"theta"`
	Phi    float64        `json:"phi"`
	Lon    float64        `json:"lon"`
	Lat    float64        `json:"lat"`
}
