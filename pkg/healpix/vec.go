package healpix

import "math"

// Vec3 is a Cartesian direction. It need not be normalised.
type Vec3 struct {
	X, Y, Z float64
}

func vecFromZPhi(z, phi float64) Vec3 {
	sth := math.Sqrt((1 - z) * (1 + z))
	return Vec3{X: sth * math.Cos(phi), Y: sth * math.Sin(phi), Z: z}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Angle returns the angle in radians between v and w.
func (v Vec3) Angle(w Vec3) float64 {
	cx := v.Y*w.Z - v.Z*w.Y
	cy := v.Z*w.X - v.X*w.Z
	cz := v.X*w.Y - v.Y*w.X
	dot := v.X*w.X + v.Y*w.Y + v.Z*w.Z
	return math.Atan2(math.Sqrt(cx*cx+cy*cy+cz*cz), dot)
}

// Ang2Vec returns the unit vector pointing at (theta, phi).
func Ang2Vec(theta, phi float64) (Vec3, error) {
	if err := checkTheta(theta); err != nil {
		return Vec3{}, err
	}
	if err := checkPhi(phi); err != nil {
		return Vec3{}, err
	}
	st := math.Sin(theta)
	return Vec3{X: st * math.Cos(phi), Y: st * math.Sin(phi), Z: math.Cos(theta)}, nil
}

// Vec2Ang returns the colatitude and longitude of v, with phi in [0, 2pi).
func Vec2Ang(v Vec3) (theta, phi float64, err error) {
	if v.Norm() == 0 {
		return 0, 0, invalidf("zero-length vector")
	}
	theta = math.Atan2(math.Hypot(v.X, v.Y), v.Z)
	phi = 0
	if v.X != 0 || v.Y != 0 {
		phi = normalizePhi(math.Atan2(v.Y, v.X))
	}
	return theta, phi, nil
}

// Vec2Pix returns the pixel containing direction v.
func Vec2Pix(nside int64, v Vec3, nest bool) (int64, error) {
	b, err := newBase(nside)
	if err != nil {
		return 0, err
	}
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, invalidf("vector %v has no direction", v)
	}
	z := v.Z / n
	phi := 0.0
	if v.X != 0 || v.Y != 0 {
		phi = normalizePhi(math.Atan2(v.Y, v.X))
	}
	sth := math.Hypot(v.X, v.Y) / n
	return b.loc2pix(z, phi, sth, math.Abs(z) > 0.99, nest), nil
}

// Pix2Vec returns the unit vector of the centre of pixel ipix.
func Pix2Vec(nside, ipix int64, nest bool) (Vec3, error) {
	b, err := newBase(nside)
	if err != nil {
		return Vec3{}, err
	}
	if err := b.checkPix(ipix); err != nil {
		return Vec3{}, err
	}
	z, phi, sth, haveSth := b.pix2loc(ipix, nest)
	if !haveSth {
		return vecFromZPhi(z, phi), nil
	}
	return Vec3{X: sth * math.Cos(phi), Y: sth * math.Sin(phi), Z: z}, nil
}
