package healpix

import "math"

// LonLat2Ang converts longitude and latitude in degrees to (theta, phi) in
// radians.
func LonLat2Ang(lon, lat float64) (theta, phi float64, err error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, invalidf("latitude %v outside [-90, 90]", lat)
	}
	if err := checkPhi(lon); err != nil {
		return 0, 0, invalidf("longitude %v is not finite", lon)
	}
	return halfPi - deg2rad(lat), deg2rad(lon), nil
}

// Ang2LonLat converts (theta, phi) in radians to longitude and latitude in
// degrees.
func Ang2LonLat(theta, phi float64) (lon, lat float64) {
	return rad2deg(phi), 90 - rad2deg(theta)
}

// Ang2PixLonLat is Ang2Pix taking longitude and latitude in degrees.
func Ang2PixLonLat(nside int64, lon, lat float64, nest bool) (int64, error) {
	theta, phi, err := LonLat2Ang(lon, lat)
	if err != nil {
		return 0, err
	}
	// rounding can push the poles a hair outside [0, pi]
	theta = math.Min(math.Max(theta, 0), math.Pi)
	return Ang2Pix(nside, theta, phi, nest)
}

// Pix2AngLonLat is Pix2Ang returning longitude and latitude in degrees.
func Pix2AngLonLat(nside, ipix int64, nest bool) (lon, lat float64, err error) {
	theta, phi, err := Pix2Ang(nside, ipix, nest)
	if err != nil {
		return 0, 0, err
	}
	lon, lat = Ang2LonLat(theta, phi)
	return lon, lat, nil
}
