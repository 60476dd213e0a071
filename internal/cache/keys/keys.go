// Package keys builds deterministic cache keys for coverage results.
package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/healpix-index/internal/core/model"
	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

// Coverage returns cov:<scheme>:<nside>:<bbox>:h=<xxhash>. The readable bbox
// part is rounded to micro-degrees; the hash covers the exact float bits so
// boxes that round alike still get distinct keys.
func Coverage(scheme healpix.Scheme, nside int64, bb model.BBox) string {
	return fmt.Sprintf("cov:%s:%d:%s:h=%016x", scheme, nside, bboxToken(bb), bboxHash(bb))
}

// Pixel returns pix:<scheme>:<nside>:<ipix>, used for hotness tracking.
func Pixel(scheme healpix.Scheme, nside, ipix int64) string {
	return "pix:" + scheme.String() + ":" + strconv.FormatInt(nside, 10) + ":" + strconv.FormatInt(ipix, 10)
}

// ParsePixel is the inverse of Pixel.
func ParsePixel(key string) (healpix.Scheme, int64, int64, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != "pix" {
		return 0, 0, 0, fmt.Errorf("not a pixel key: %q", key)
	}
	scheme, err := healpix.ParseScheme(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	nside, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("nside: %w", err)
	}
	ipix, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ipix: %w", err)
	}
	return scheme, nside, ipix, nil
}

func bboxToken(bb model.BBox) string {
	var b strings.Builder
	for i, v := range []float64{bb.X1, bb.Y1, bb.X2, bb.Y2} {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
	}
	return b.String()
}

func bboxHash(bb model.BBox) uint64 {
	d := xxhash.New()
	for _, v := range []float64{bb.X1, bb.Y1, bb.X2, bb.Y2} {
		_, _ = d.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		_, _ = d.WriteString(",")
	}
	_, _ = d.WriteString(strings.ToUpper(strings.TrimSpace(bb.SRID)))
	return d.Sum64()
}
