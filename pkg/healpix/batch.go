package healpix

import "fmt"

// Ang2PixBatch applies Ang2Pix element-wise. The output preserves input
// order. The first failing element aborts the batch.
func Ang2PixBatch(nside int64, thetas, phis []float64, nest bool) ([]int64, error) {
	if len(thetas) != len(phis) {
		return nil, invalidf("theta/phi length mismatch: %d != %d", len(thetas), len(phis))
	}
	b, err := newBase(nside)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(thetas))
	for i := range thetas {
		out[i], err = b.ang2pix(thetas[i], phis[i], nest)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// Pix2AngBatch applies Pix2Ang element-wise, preserving input order.
func Pix2AngBatch(nside int64, ipix []int64, nest bool) (thetas, phis []float64, err error) {
	if _, err := newBase(nside); err != nil {
		return nil, nil, err
	}
	thetas = make([]float64, len(ipix))
	phis = make([]float64, len(ipix))
	for i, p := range ipix {
		thetas[i], phis[i], err = Pix2Ang(nside, p, nest)
		if err != nil {
			return nil, nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return thetas, phis, nil
}
