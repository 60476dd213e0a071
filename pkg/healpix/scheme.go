package healpix

import (
	"strings"
)

// Scheme selects the pixel ordering.
type Scheme uint8

const (
	// Ring orders pixels along iso-latitude rings from north to south.
	Ring Scheme = iota
	// Nested orders pixels by quadtree subdivision of the 12 base pixels.
	Nested
)

// SchemeFromNest maps the boolean nest flag used by the index functions to a
// Scheme.
func SchemeFromNest(nest bool) Scheme {
	if nest {
		return Nested
	}
	return Ring
}

// Nest reports whether s is the nested scheme.
func (s Scheme) Nest() bool { return s == Nested }

func (s Scheme) String() string {
	if s == Nested {
		return "nested"
	}
	return "ring"
}

func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(b []byte) error {
	v, err := ParseScheme(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseScheme accepts "ring", "nest" or "nested" (case-insensitive). The
// empty string means Ring.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ring":
		return Ring, nil
	case "nest", "nested":
		return Nested, nil
	default:
		return Ring, invalidf("unknown scheme %q (want ring or nested)", s)
	}
}
