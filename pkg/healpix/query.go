package healpix

import (
	"math"
	"slices"
)

// QueryLonLatBox returns the sorted indices of every pixel that contains at
// least one point of the box [lon1, lon2] x [lat1, lat2] (degrees). lon2 may
// exceed 180 to cross the antimeridian but lon2-lon1 must not exceed 360.
//
// A pixel meeting the box either crosses its outline or lies inside it with
// its centre in the box, so the query walks the four edges plus the centre
// parallel of every ring in the latitude range. Along each walk the pixel
// boundaries are crossed at analytically known points and one sample per
// crossing interval is enough. A pixel that touches the box at a single
// vertex only may be left out. Cost grows with the size of the result.
func QueryLonLatBox(nside int64, lon1, lat1, lon2, lat2 float64, nest bool) ([]int64, error) {
	b, err := newBase(nside)
	if err != nil {
		return nil, err
	}
	for _, v := range []float64{lon1, lat1, lon2, lat2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidf("box coordinate %v is not finite", v)
		}
	}
	if lat1 < -90 || lat2 > 90 || lat1 > lat2 {
		return nil, invalidf("latitudes [%v, %v] outside [-90, 90] or reversed", lat1, lat2)
	}
	if lon1 > lon2 || lon2-lon1 > 360 {
		return nil, invalidf("longitudes [%v, %v] reversed or wider than 360", lon1, lon2)
	}

	q := boxQuery{
		b:       b,
		nest:    nest,
		phi1:    deg2rad(lon1),
		phi2:    deg2rad(lon2),
		thNorth: math.Max(halfPi-deg2rad(lat2), 0),
		thSouth: math.Min(halfPi-deg2rad(lat1), math.Pi),
		seen:    make(map[int64]struct{}),
	}
	q.walkParallel(q.thNorth)
	q.walkParallel(q.thSouth)
	q.walkMeridian(q.phi1)
	q.walkMeridian(q.phi2)

	zHi, zLo := math.Cos(q.thNorth), math.Cos(q.thSouth)
	first, last := b.ringRange(zLo, zHi)
	for ring := first; ring <= last; ring++ {
		z := b.ringZ(ring)
		if z > zLo && z < zHi {
			q.walkParallel(math.Acos(z))
		}
	}

	out := make([]int64, 0, len(q.seen))
	for p := range q.seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

type boxQuery struct {
	b                base
	nest             bool
	phi1, phi2       float64
	thNorth, thSouth float64
	seen             map[int64]struct{}
}

func (q *boxQuery) add(theta, phi float64) {
	theta = math.Min(math.Max(theta, 0), math.Pi)
	nearPole := theta < 0.01 || theta > math.Pi-0.01
	p := q.b.loc2pix(math.Cos(theta), normalizePhi(phi), math.Sin(theta), nearPole, q.nest)
	q.seen[p] = struct{}{}
}

// addSpan samples both ends of ts and the midpoint of every gap between
// neighbouring crossings. Crossings themselves are skipped: they lie on
// pixel boundaries and coincident ones are vertices shared with pixels that
// never enter the walk. ts must be sorted.
func addSpan(ts []float64, sample func(float64)) {
	sample(ts[0])
	sample(ts[len(ts)-1])
	for i := 1; i < len(ts); i++ {
		if ts[i]-ts[i-1] > 1e-12 {
			sample(0.5 * (ts[i-1] + ts[i]))
		}
	}
}

// walkParallel covers the pixels met by the parallel at theta between phi1
// and phi2.
func (q *boxQuery) walkParallel(theta float64) {
	nside := float64(q.b.nside)
	z := math.Cos(theta)
	za := math.Abs(z)

	// quadrant boundaries split the walk into pieces with one face formula each
	cuts := []float64{q.phi1}
	for m := math.Floor(q.phi1/halfPi) + 1; m*halfPi < q.phi2; m++ {
		cuts = append(cuts, m*halfPi)
	}
	cuts = append(cuts, q.phi2)

	for i := 1; i < len(cuts); i++ {
		p0, p1 := cuts[i-1], cuts[i]
		mid := 0.5 * (p0 + p1)
		tt := normalizePhi(mid) * invHalfPi
		quad := math.Min(math.Floor(tt), 3)
		// local face coordinate t in [0, 1] at both ends
		t0 := tt - quad + (p0-mid)*invHalfPi
		t1 := tt - quad + (p1-mid)*invHalfPi

		ts := []float64{t0, t1}
		if za <= 2.0/3.0 {
			c0 := nside * (0.5 + quad)
			off := nside * 0.75 * z
			for _, c := range []float64{c0 - off, c0 + off} {
				for k := math.Floor(c+nside*t0) + 1; k < c+nside*t1; k++ {
					ts = append(ts, (k-c)/nside)
				}
			}
		} else {
			tmp := nside * math.Sqrt(3*(1-za))
			for k := math.Floor(t0*tmp) + 1; k < t1*tmp; k++ {
				ts = append(ts, k/tmp)
			}
			for k := math.Floor((1-t1)*tmp) + 1; k < (1-t0)*tmp; k++ {
				ts = append(ts, 1-k/tmp)
			}
		}
		slices.Sort(ts)
		addSpan(ts, func(t float64) {
			q.add(theta, math.Min(math.Max(mid+(t-(t0+t1)/2)*halfPi, p0), p1))
		})
	}
}

// walkMeridian covers the pixels met by the meridian at phi between the
// box's northern and southern edges.
func (q *boxQuery) walkMeridian(phi float64) {
	nside := float64(q.b.nside)
	tt := normalizePhi(phi) * invHalfPi
	if tt >= 4 {
		tt -= 4
	}
	quad := math.Min(math.Floor(tt), 3)
	t := tt - quad

	zHi, zLo := math.Cos(q.thNorth), math.Cos(q.thSouth)
	zs := []float64{zLo, zHi}
	for _, zb := range []float64{-2.0 / 3.0, 2.0 / 3.0} {
		if zb > zLo && zb < zHi {
			zs = append(zs, zb)
		}
	}

	// equatorial belt: jp and jm are linear in z
	if lo, hi := math.Max(zLo, -2.0/3.0), math.Min(zHi, 2.0/3.0); lo < hi {
		a := nside * (0.5 + quad + t)
		s := nside * 0.75
		for k := math.Floor(a-s*hi) + 1; k < a-s*lo; k++ {
			zs = append(zs, (a-k)/s)
		}
		for k := math.Floor(a+s*lo) + 1; k < a+s*hi; k++ {
			zs = append(zs, (k-a)/s)
		}
	}

	// polar caps: jp and jm scale with sqrt(3(1-|z|))
	for _, sign := range []float64{1, -1} {
		lo, hi := math.Max(zLo, 2.0/3.0), zHi
		if sign < 0 {
			lo, hi = math.Max(-zHi, 2.0/3.0), -zLo
		}
		if lo >= hi {
			continue
		}
		tmpMin := nside * math.Sqrt(3*(1-hi))
		tmpMax := nside * math.Sqrt(3*(1-lo))
		for _, f := range []float64{t, 1 - t} {
			if f <= 0 {
				continue
			}
			for k := math.Floor(f*tmpMin) + 1; k < f*tmpMax; k++ {
				r := k / (f * nside)
				zs = append(zs, sign*(1-r*r/3))
			}
		}
	}

	slices.Sort(zs)
	addSpan(zs, func(z float64) {
		th := math.Acos(math.Min(math.Max(z, -1), 1))
		q.add(math.Min(math.Max(th, q.thNorth), q.thSouth), phi)
	})
	q.add(q.thNorth, phi)
	q.add(q.thSouth, phi)
}

// ringZ returns z = cos(theta) of the pixel centres on ring (1-based).
func (b base) ringZ(ring int64) float64 {
	nside := b.nside
	switch {
	case ring < nside:
		return 1 - float64(ring*ring)*b.fact2
	case ring <= 3*nside:
		return float64(2*nside-ring) * b.fact1
	default:
		nr := 4*nside - ring
		return float64(nr*nr)*b.fact2 - 1
	}
}

// ringRange returns the rings whose centres may fall within [zLo, zHi].
func (b base) ringRange(zLo, zHi float64) (first, last int64) {
	first = max(int64(math.Floor(b.ringOf(zHi)))-1, 1)
	last = min(int64(math.Ceil(b.ringOf(zLo)))+1, 4*b.nside-1)
	return first, last
}

// ringOf is the continuous ring coordinate at z, increasing southwards.
func (b base) ringOf(z float64) float64 {
	nside := float64(b.nside)
	switch {
	case z > 2.0/3.0:
		return nside * math.Sqrt(3*(1-z))
	case z < -2.0/3.0:
		return 4*nside - nside*math.Sqrt(3*(1+z))
	default:
		return 2*nside - 1.5*nside*z
	}
}
