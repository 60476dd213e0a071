package healpix

import "math"

// face layout: ring index of the face's southern vertex in units of nside,
// and longitude index of its centre in units of pi/4.
var (
	jrll = [12]int64{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int64{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// base carries the per-nside constants shared by the index conversions.
type base struct {
	nside int64
	order uint
	npix  int64
	ncap  int64
	fact1 float64
	fact2 float64
}

func newBase(nside int64) (base, error) {
	order, err := Nside2Order(nside)
	if err != nil {
		return base{}, err
	}
	npix := 12 * nside * nside
	fact2 := 4 / float64(npix)
	return base{
		nside: nside,
		order: uint(order),
		npix:  npix,
		ncap:  2 * nside * (nside - 1),
		fact1: float64(nside<<1) * fact2,
		fact2: fact2,
	}, nil
}

func (b base) checkPix(ipix int64) error {
	if ipix < 0 || ipix >= b.npix {
		return invalidf("ipix %d outside [0, %d) for nside %d", ipix, b.npix, b.nside)
	}
	return nil
}

// Ang2Pix returns the index of the pixel containing the point at colatitude
// theta and longitude phi (radians). theta must lie in [0, pi]; phi may be
// any finite value and is wrapped into [0, 2pi).
func Ang2Pix(nside int64, theta, phi float64, nest bool) (int64, error) {
	b, err := newBase(nside)
	if err != nil {
		return 0, err
	}
	return b.ang2pix(theta, phi, nest)
}

func (b base) ang2pix(theta, phi float64, nest bool) (int64, error) {
	if err := checkTheta(theta); err != nil {
		return 0, err
	}
	if err := checkPhi(phi); err != nil {
		return 0, err
	}
	nearPole := theta < 0.01 || theta > math.Pi-0.01
	return b.loc2pix(math.Cos(theta), normalizePhi(phi), math.Sin(theta), nearPole, nest), nil
}

// Pix2Ang returns the colatitude and longitude (radians) of the centre of
// pixel ipix.
func Pix2Ang(nside, ipix int64, nest bool) (theta, phi float64, err error) {
	b, err := newBase(nside)
	if err != nil {
		return 0, 0, err
	}
	if err := b.checkPix(ipix); err != nil {
		return 0, 0, err
	}
	z, phi, sth, haveSth := b.pix2loc(ipix, nest)
	if haveSth {
		return math.Atan2(sth, z), phi, nil
	}
	return math.Acos(z), phi, nil
}

func checkTheta(theta float64) error {
	if math.IsNaN(theta) || theta < 0 || theta > math.Pi {
		return invalidf("theta %v outside [0, pi]", theta)
	}
	return nil
}

func checkPhi(phi float64) error {
	if math.IsNaN(phi) || math.IsInf(phi, 0) {
		return invalidf("phi %v is not finite", phi)
	}
	return nil
}

// normalizePhi wraps phi into [0, 2pi) so both ends of the seam agree.
func normalizePhi(phi float64) float64 {
	p := math.Mod(phi, twoPi)
	if p < 0 {
		p += twoPi
	}
	if p >= twoPi {
		p = 0
	}
	return p
}

func (b base) loc2pix(z, phi, sth float64, haveSth, nest bool) int64 {
	ix, iy, face := b.loc2xyf(z, phi, sth, haveSth)
	if nest {
		return b.xyf2nest(ix, iy, face)
	}
	return b.xyf2ring(ix, iy, face)
}

// loc2xyf locates (z, phi) on one of the 12 base faces and returns the
// face-local pixel coordinates.
func (b base) loc2xyf(z, phi, sth float64, haveSth bool) (ix, iy int64, face int) {
	nside := b.nside
	za := math.Abs(z)
	tt := phi * invHalfPi
	if tt >= 4 {
		tt -= 4
	}

	if za <= 2.0/3.0 {
		// equatorial belt
		temp1 := float64(nside) * (0.5 + tt)
		temp2 := float64(nside) * (z * 0.75)
		jp := int64(temp1 - temp2)
		jm := int64(temp1 + temp2)
		ifp := jp >> b.order
		ifm := jm >> b.order
		switch {
		case ifp == ifm:
			face = int(ifp) | 4
		case ifp < ifm:
			face = int(ifp)
		default:
			face = int(ifm) + 8
		}
		ix = jm & (nside - 1)
		iy = nside - (jp & (nside - 1)) - 1
		return ix, iy, face
	}

	// polar caps
	ntt := int64(tt)
	if ntt > 3 {
		ntt = 3
	}
	tp := tt - float64(ntt)
	var tmp float64
	if haveSth && za > 0.99 {
		tmp = float64(nside) * sth / math.Sqrt((1+za)/3)
	} else {
		tmp = float64(nside) * math.Sqrt(3*(1-za))
	}
	jp := int64(tp * tmp)
	jm := int64((1 - tp) * tmp)
	if jp >= nside {
		jp = nside - 1
	}
	if jm >= nside {
		jm = nside - 1
	}
	if z >= 0 {
		return nside - jm - 1, nside - jp - 1, int(ntt)
	}
	return jp, jm, int(ntt) + 8
}

// pix2loc returns z = cos(theta), phi and, close to the poles, sin(theta)
// computed without cancellation.
func (b base) pix2loc(ipix int64, nest bool) (z, phi, sth float64, haveSth bool) {
	var ix, iy int64
	var face int
	if nest {
		ix, iy, face = b.nest2xyf(ipix)
	} else {
		ix, iy, face = b.ring2xyf(ipix)
	}

	nside := b.nside
	jr := (jrll[face] << b.order) - ix - iy - 1

	var nr int64
	switch {
	case jr < nside:
		nr = jr
		tmp := float64(nr*nr) * b.fact2
		z = 1 - tmp
		if z > 0.99 {
			sth = math.Sqrt(tmp * (2 - tmp))
			haveSth = true
		}
	case jr > 3*nside:
		nr = 4*nside - jr
		tmp := float64(nr*nr) * b.fact2
		z = tmp - 1
		if z < -0.99 {
			sth = math.Sqrt(tmp * (2 - tmp))
			haveSth = true
		}
	default:
		nr = nside
		z = float64(2*nside-jr) * b.fact1
	}

	tmp := jpll[face]*nr + ix - iy
	if tmp < 0 {
		tmp += 8 * nr
	}
	if nr == nside {
		phi = 0.75 * halfPi * float64(tmp) * b.fact1
	} else {
		phi = (0.5 * halfPi * float64(tmp)) / float64(nr)
	}
	return z, phi, sth, haveSth
}

func (b base) xyf2nest(ix, iy int64, face int) int64 {
	return int64(face)<<(2*b.order) + spreadBits(ix) + spreadBits(iy)<<1
}

func (b base) nest2xyf(ipix int64) (ix, iy int64, face int) {
	face = int(ipix >> (2 * b.order))
	p := ipix & (b.nside*b.nside - 1)
	return compressBits(p), compressBits(p >> 1), face
}

// spreadBits interleaves zeros between the low 32 bits of v.
func spreadBits(v int64) int64 {
	x := uint64(v) & 0xFFFFFFFF
	x = (x | x<<16) & 0x0000FFFF0000FFFF
	x = (x | x<<8) & 0x00FF00FF00FF00FF
	x = (x | x<<4) & 0x0F0F0F0F0F0F0F0F
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return int64(x)
}

// compressBits is the inverse of spreadBits: it gathers the even bits of v.
func compressBits(v int64) int64 {
	x := uint64(v) & 0x5555555555555555
	x = (x | x>>1) & 0x3333333333333333
	x = (x | x>>2) & 0x0F0F0F0F0F0F0F0F
	x = (x | x>>4) & 0x00FF00FF00FF00FF
	x = (x | x>>8) & 0x0000FFFF0000FFFF
	x = (x | x>>16) & 0x00000000FFFFFFFF
	return int64(x)
}
