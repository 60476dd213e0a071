package healpix

// Nest2Ring converts a NESTED pixel index to the RING index of the same pixel.
func Nest2Ring(nside, ipix int64) (int64, error) {
	b, err := newBase(nside)
	if err != nil {
		return 0, err
	}
	if err := b.checkPix(ipix); err != nil {
		return 0, err
	}
	ix, iy, face := b.nest2xyf(ipix)
	return b.xyf2ring(ix, iy, face), nil
}

// Ring2Nest converts a RING pixel index to the NESTED index of the same pixel.
func Ring2Nest(nside, ipix int64) (int64, error) {
	b, err := newBase(nside)
	if err != nil {
		return 0, err
	}
	if err := b.checkPix(ipix); err != nil {
		return 0, err
	}
	ix, iy, face := b.ring2xyf(ipix)
	return b.xyf2nest(ix, iy, face), nil
}

// ringInfo returns the first pixel index of ring, the number of pixels in it
// and whether its pixel centres are offset by half a pixel in longitude.
func (b base) ringInfo(ring int64) (start, count int64, shifted bool) {
	nside := b.nside
	switch {
	case ring < nside:
		return 2 * ring * (ring - 1), 4 * ring, true
	case ring < 3*nside:
		count = 4 * nside
		return b.ncap + (ring-nside)*count, count, (ring-nside)&1 == 0
	default:
		nr := 4*nside - ring
		return b.npix - 2*nr*(nr+1), 4 * nr, true
	}
}

func (b base) xyf2ring(ix, iy int64, face int) int64 {
	nl4 := 4 * b.nside
	jr := jrll[face]*b.nside - ix - iy - 1

	start, nr, shifted := b.ringInfo(jr)
	nr >>= 2
	var kshift int64 = 1
	if shifted {
		kshift = 0
	}
	jp := (jpll[face]*nr + ix - iy + 1 + kshift) / 2
	if jp > nl4 {
		jp -= nl4
	} else if jp < 1 {
		jp += nl4
	}
	return start + jp - 1
}

func (b base) ring2xyf(ipix int64) (ix, iy int64, face int) {
	nside := b.nside
	nl2 := 2 * nside
	var iring, iphi, kshift, nr int64

	switch {
	case ipix < b.ncap:
		// north polar cap
		iring = (1 + isqrt(1+2*ipix)) >> 1
		iphi = (ipix + 1) - 2*iring*(iring-1)
		nr = iring
		face = int((iphi - 1) / nr)
	case ipix < b.npix-b.ncap:
		// equatorial belt
		ip := ipix - b.ncap
		tmp := ip >> (b.order + 2)
		iring = tmp + nside
		iphi = ip - tmp*4*nside + 1
		kshift = (iring + nside) & 1
		nr = nside
		ire := tmp + 1
		irm := nl2 + 1 - tmp
		ifm := (iphi - (ire >> 1) + nside - 1) >> b.order
		ifp := (iphi - (irm >> 1) + nside - 1) >> b.order
		switch {
		case ifp == ifm:
			face = int(ifp) | 4
		case ifp < ifm:
			face = int(ifp)
		default:
			face = int(ifm) + 8
		}
	default:
		// south polar cap
		ip := b.npix - ipix
		iring = (1 + isqrt(2*ip-1)) >> 1
		iphi = 4*iring + 1 - (ip - 2*iring*(iring-1))
		nr = iring
		iring = 2*nl2 - iring
		face = int((iphi-1)/nr) + 8
	}

	irt := iring - jrll[face]*nside + 1
	ipt := 2*iphi - jpll[face]*nr - kshift - 1
	if ipt >= nl2 {
		ipt -= 8 * nside
	}
	return (ipt - irt) >> 1, (-ipt - irt) >> 1, face
}
