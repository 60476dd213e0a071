// Package router holds the /v1 HTTP handlers over the HEALPix engine, the
// coverage service and the hotness tracker.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/healpix-index/internal/cache/keys"
	"github.com/mohammed-shakir/healpix-index/internal/core/model"
	"github.com/mohammed-shakir/healpix-index/internal/core/observability"
	"github.com/mohammed-shakir/healpix-index/internal/coverage"
	"github.com/mohammed-shakir/healpix-index/internal/hotness"
	"github.com/mohammed-shakir/healpix-index/pkg/healpix"
)

// CoverageService resolves bbox coverage, normally through the cache tiers.
type CoverageService interface {
	Pixels(ctx context.Context, req model.CoverageRequest) (coverage.Result, error)
}

// Crosswalk maps pixels to H3 cells and back.
type Crosswalk interface {
	CellForPixel(nside, ipix int64, scheme healpix.Scheme, res int) (string, error)
	PixelForCell(cell string, nside int64, scheme healpix.Scheme) (int64, error)
}

type Deps struct {
	Logger       *slog.Logger
	DefaultNside int64
	Coverage     CoverageService
	H3           Crosswalk
	Hotness      hotness.Interface
}

const (
	defaultTopN = 10
	maxTopN     = 1000
)

type api struct {
	Deps
}

// Mount registers the /v1 routes on r. Optional dependencies left nil make
// their routes answer 503.
func Mount(r chi.Router, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if !healpix.IsNsideValid(d.DefaultNside) {
		d.DefaultNside = 64
	}
	a := &api{Deps: d}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/nside2npix", a.nside2npix)
		r.Get("/npix2nside", a.npix2nside)
		r.Get("/pixarea", a.pixarea)
		r.Get("/resol", a.resol)
		r.Get("/ang2pix", a.ang2pix)
		r.Get("/pix2ang", a.pix2ang)
		r.Get("/convert", a.convert)
		r.Get("/coverage", a.coverage)
		r.Get("/h3", a.h3)
		r.Get("/hot", a.hot)
	})
}

func (a *api) nside2npix(w http.ResponseWriter, r *http.Request) {
	nside, err := a.nside(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	npix, err := healpix.Nside2Npix(nside)
	observability.ObserveEngineOp("nside2npix", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"nside": nside, "npix": npix})
}

func (a *api) npix2nside(w http.ResponseWriter, r *http.Request) {
	npix, err := requiredInt(r, "npix")
	if err != nil {
		badRequest(w, err)
		return
	}
	nside, err := healpix.Npix2Nside(npix)
	observability.ObserveEngineOp("npix2nside", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"nside": nside, "npix": npix})
}

func (a *api) pixarea(w http.ResponseWriter, r *http.Request) {
	nside, err := a.nside(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	degrees, err := optionalBool(r, "degrees")
	if err != nil {
		badRequest(w, err)
		return
	}
	area, err := healpix.Nside2PixArea(nside, degrees)
	observability.ObserveEngineOp("pixarea", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	unit := "sr"
	if degrees {
		unit = "deg2"
	}
	writeJSON(w, http.StatusOK, map[string]any{"nside": nside, "area": area, "unit": unit})
}

func (a *api) resol(w http.ResponseWriter, r *http.Request) {
	nside, err := a.nside(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	arcmin, err := optionalBool(r, "arcmin")
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := healpix.Nside2Resol(nside, arcmin)
	observability.ObserveEngineOp("resol", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	unit := "rad"
	if arcmin {
		unit = "arcmin"
	}
	writeJSON(w, http.StatusOK, map[string]any{"nside": nside, "resolution": res, "unit": unit})
}

func (a *api) ang2pix(w http.ResponseWriter, r *http.Request) {
	nside, scheme, err := a.nsideScheme(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	q := r.URL.Query()
	var ipix int64
	switch {
	case q.Has("theta") || q.Has("phi"):
		theta, err := requiredFloat(r, "theta")
		if err != nil {
			badRequest(w, err)
			return
		}
		phi, err := requiredFloat(r, "phi")
		if err != nil {
			badRequest(w, err)
			return
		}
		ipix, err = healpix.Ang2Pix(nside, theta, phi, scheme.Nest())
		observability.ObserveEngineOp("ang2pix", err)
		if err != nil {
			a.fail(w, r, err)
			return
		}
	case q.Has("lon") || q.Has("lat"):
		lon, err := requiredFloat(r, "lon")
		if err != nil {
			badRequest(w, err)
			return
		}
		lat, err := requiredFloat(r, "lat")
		if err != nil {
			badRequest(w, err)
			return
		}
		ipix, err = healpix.Ang2PixLonLat(nside, lon, lat, scheme.Nest())
		observability.ObserveEngineOp("ang2pix", err)
		if err != nil {
			a.fail(w, r, err)
			return
		}
	default:
		badRequest(w, errors.New("either theta and phi or lon and lat are required"))
		return
	}
	if a.Hotness != nil {
		a.Hotness.Inc(keys.Pixel(scheme, nside, ipix))
	}
	writeJSON(w, http.StatusOK, map[string]any{"nside": nside, "scheme": scheme, "ipix": ipix})
}

func (a *api) pix2ang(w http.ResponseWriter, r *http.Request) {
	nside, scheme, err := a.nsideScheme(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	ipix, err := requiredInt(r, "ipix")
	if err != nil {
		badRequest(w, err)
		return
	}
	info, err := pixelInfo(nside, ipix, scheme)
	observability.ObserveEngineOp("pix2ang", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func pixelInfo(nside, ipix int64, scheme healpix.Scheme) (model.PixelInfo, error) {
	theta, phi, err := healpix.Pix2Ang(nside, ipix, scheme.Nest())
	if err != nil {
		return model.PixelInfo{}, err
	}
	lon, lat := healpix.Ang2LonLat(theta, phi)
	return model.PixelInfo{
		Nside: nside, Scheme: scheme, Ipix: ipix,
		Theta: theta, Phi: phi, Lon: lon, Lat: lat,
	}, nil
}

func (a *api) convert(w http.ResponseWriter, r *http.Request) {
	nside, err := a.nside(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	ipix, err := requiredInt(r, "ipix")
	if err != nil {
		badRequest(w, err)
		return
	}
	from, err := healpix.ParseScheme(r.URL.Query().Get("from"))
	if err != nil {
		badRequest(w, fmt.Errorf("from: %w", err))
		return
	}
	to, err := healpix.ParseScheme(r.URL.Query().Get("to"))
	if err != nil {
		badRequest(w, fmt.Errorf("to: %w", err))
		return
	}

	out := ipix
	switch {
	case from == to:
		_, err = healpix.Nside2Npix(nside)
		if err == nil {
			_, _, err = healpix.Pix2Ang(nside, ipix, from.Nest())
		}
	case from == healpix.Nested:
		out, err = healpix.Nest2Ring(nside, ipix)
	default:
		out, err = healpix.Ring2Nest(nside, ipix)
	}
	observability.ObserveEngineOp("convert", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nside": nside, "from": from, "to": to, "ipix": ipix, "result": out,
	})
}

func (a *api) coverage(w http.ResponseWriter, r *http.Request) {
	if a.Coverage == nil {
		http.Error(w, "coverage disabled", http.StatusServiceUnavailable)
		return
	}
	nside, scheme, err := a.nsideScheme(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
	if raw == "" {
		badRequest(w, errors.New("missing required parameter: bbox"))
		return
	}
	bb, err := parseBBOX(raw)
	if err != nil {
		badRequest(w, fmt.Errorf("invalid bbox: %w", err))
		return
	}

	res, err := a.Coverage.Pixels(r.Context(), model.CoverageRequest{BBox: bb, Nside: nside, Scheme: scheme})
	observability.ObserveEngineOp("coverage", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("X-Cache", res.Tier)
	writeJSON(w, http.StatusOK, map[string]any{
		"nside":  nside,
		"scheme": scheme,
		"bbox":   bb.String(),
		"count":  len(res.Pixels),
		"pixels": res.Pixels,
	})
}

func (a *api) h3(w http.ResponseWriter, r *http.Request) {
	if a.H3 == nil {
		http.Error(w, "h3 crosswalk disabled", http.StatusServiceUnavailable)
		return
	}
	nside, scheme, err := a.nsideScheme(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	if cell := strings.TrimSpace(r.URL.Query().Get("cell")); cell != "" {
		ipix, err := a.H3.PixelForCell(cell, nside, scheme)
		observability.ObserveEngineOp("h3_to_pixel", err)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"nside": nside, "scheme": scheme, "ipix": ipix, "cell": cell})
		return
	}

	ipix, err := requiredInt(r, "ipix")
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := requiredInt(r, "res")
	if err != nil {
		badRequest(w, err)
		return
	}
	cell, err := a.H3.CellForPixel(nside, ipix, scheme, int(res))
	observability.ObserveEngineOp("pixel_to_h3", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nside": nside, "scheme": scheme, "ipix": ipix, "res": res, "cell": cell})
}

type hotEntry struct {
	Key    string          `json:"key"`
	Score  float64         `json:"score"`
	Nside  int64           `json:"nside,omitempty"`
	Scheme *healpix.Scheme `json:"scheme,omitempty"`
	Ipix   *int64          `json:"ipix,omitempty"`
}

func (a *api) hot(w http.ResponseWriter, r *http.Request) {
	if a.Hotness == nil {
		http.Error(w, "hotness disabled", http.StatusServiceUnavailable)
		return
	}
	n := defaultTopN
	if v := strings.TrimSpace(r.URL.Query().Get("n")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			badRequest(w, fmt.Errorf("n must be a positive integer (got %q)", v))
			return
		}
		n = min(parsed, maxTopN)
	}

	top := a.Hotness.Top(n)
	out := make([]hotEntry, 0, len(top))
	for _, e := range top {
		he := hotEntry{Key: e.Key, Score: e.Score}
		if scheme, nside, ipix, err := keys.ParsePixel(e.Key); err == nil {
			he.Nside, he.Scheme, he.Ipix = nside, &scheme, &ipix
		}
		out = append(out, he)
	}
	writeJSON(w, http.StatusOK, map[string]any{"n": n, "entries": out})
}

// --- helpers ---

func (a *api) nside(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get("nside"))
	if v == "" {
		return a.DefaultNside, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("nside: %w", err)
	}
	return n, nil
}

func (a *api) nsideScheme(r *http.Request) (int64, healpix.Scheme, error) {
	nside, err := a.nside(r)
	if err != nil {
		return 0, 0, err
	}
	scheme, err := healpix.ParseScheme(r.URL.Query().Get("scheme"))
	if err != nil {
		return 0, 0, err
	}
	return nside, scheme, nil
}

func requiredInt(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	return parseFloat(v)
}

func optionalBool(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// fail maps engine and service errors to HTTP status codes.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, healpix.ErrInvalidParameter):
		badRequest(w, err)
	case coverage.IsLimitError(err):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		a.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// parseBBOX accepts x1,y1,x2,y2 with an optional trailing EPSG:4326. For the
// sky, x is longitude (or right ascension) and y is latitude (declination).
func parseBBOX(bboxParam string) (model.BBox, error) {
	parts := strings.Split(bboxParam, ",")
	if len(parts) != 4 && len(parts) != 5 {
		return model.BBox{}, errors.New("expected 4 or 5 comma-separated values: x1,y1,x2,y2[,EPSG:4326]")
	}
	xMin, err := parseFloat(parts[0])
	if err != nil {
		return model.BBox{}, fmt.Errorf("x1: %w", err)
	}
	yMin, err := parseFloat(parts[1])
	if err != nil {
		return model.BBox{}, fmt.Errorf("y1: %w", err)
	}
	xMax, err := parseFloat(parts[2])
	if err != nil {
		return model.BBox{}, fmt.Errorf("x2: %w", err)
	}
	yMax, err := parseFloat(parts[3])
	if err != nil {
		return model.BBox{}, fmt.Errorf("y2: %w", err)
	}

	srid := "EPSG:4326"
	if len(parts) == 5 {
		srid = strings.ToUpper(strings.TrimSpace(parts[4]))
		if srid != "EPSG:4326" {
			return model.BBox{}, fmt.Errorf("only EPSG:4326 is supported (got %q)", srid)
		}
	}

	if !(xMin >= -180 && xMin <= 360 && xMax >= -180 && xMax <= 360) {
		return model.BBox{}, errors.New("longitude must be in [-180,360]")
	}
	if !(yMin >= -90 && yMin <= 90 && yMax >= -90 && yMax <= 90) {
		return model.BBox{}, errors.New("latitude must be in [-90,90]")
	}
	if xMax < xMin || yMax < yMin {
		return model.BBox{}, errors.New("coordinates must satisfy x2>=x1 and y2>=y1")
	}
	if xMax-xMin > 360 {
		return model.BBox{}, errors.New("longitude span must not exceed 360")
	}
	return model.BBox{X1: xMin, Y1: yMin, X2: xMax, Y2: yMax, SRID: srid}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}
