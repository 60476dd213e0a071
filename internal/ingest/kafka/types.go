package kafka

import (
	"errors"
	"math"
	"time"
)

// Event is a sky position read from the input topic. RA and Dec are in
// degrees.
type Event struct {
	ID  string    `json:"id,omitempty"`
	RA  *float64  `json:"ra"`
	Dec *float64  `json:"dec"`
	TS  time.Time `json:"ts,omitzero"`
}

// IndexedEvent is the event republished with its pixel attached.
type IndexedEvent struct {
	ID        string    `json:"id"`
	RA        float64   `json:"ra"`
	Dec       float64   `json:"dec"`
	TS        time.Time `json:"ts,omitzero"`
	Nside     int64     `json:"nside"`
	Scheme    string    `json:"scheme"`
	Ipix      int64     `json:"ipix"`
	H3Cell    string    `json:"h3_cell,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

var errInvalidEvent = errors.New("invalid event")

// Validate checks the coordinates and returns RA normalised into [0, 360).
func (e Event) Validate() (ra, dec float64, err error) {
	if e.RA == nil || e.Dec == nil {
		return 0, 0, errors.Join(errInvalidEvent, errors.New("ra and dec are required"))
	}
	ra, dec = *e.RA, *e.Dec
	if math.IsNaN(ra) || math.IsInf(ra, 0) {
		return 0, 0, errors.Join(errInvalidEvent, errors.New("ra is not finite"))
	}
	if math.IsNaN(dec) || dec < -90 || dec > 90 {
		return 0, 0, errors.Join(errInvalidEvent, errors.New("dec outside [-90, 90]"))
	}
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	if ra >= 360 {
		ra = 0
	}
	return ra, dec, nil
}
