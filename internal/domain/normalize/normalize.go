// Package normalize computes per-feature z-score statistics over a catalog
// and standardizes feature vectors with them.
package normalize

import (
	"errors"
	"math"

	"github.com/okian/orbitwatch/internal/domain/orbit"
)

// Epsilon floors every standard deviation so Transform never divides by
// zero. Tuned together with the risk calibration; treat as a tunable.
const Epsilon = 1e-5

// ErrNoVectors is returned by Fit when given nothing to fit.
var ErrNoVectors = errors.New("normalize: no vectors")

// Stats holds per-feature mean and floored population standard deviation.
// A Stats value is immutable once returned by Fit.
type Stats struct {
	Mean orbit.Features `json:"mean"`
	Std  orbit.Features `json:"std"`
}

// Fit computes column means and population standard deviations over
// vectors, flooring each deviation at Epsilon.
func Fit(vectors []orbit.Features) (Stats, error) {
	if len(vectors) == 0 {
		return Stats{}, ErrNoVectors
	}

	var s Stats
	n := float64(len(vectors))
	for _, v := range vectors {
		for i := range v {
			s.Mean[i] += v[i]
		}
	}
	for i := range s.Mean {
		s.Mean[i] /= n
	}

	for _, v := range vectors {
		for i := range v {
			d := v[i] - s.Mean[i]
			s.Std[i] += d * d
		}
	}
	for i := range s.Std {
		s.Std[i] = math.Max(math.Sqrt(s.Std[i]/n), Epsilon)
	}
	return s, nil
}

// Transform standardizes v component-wise: (x - mean) / std.
func (s Stats) Transform(v orbit.Features) orbit.Features {
	var out orbit.Features
	for i := range v {
		out[i] = (v[i] - s.Mean[i]) / s.Std[i]
	}
	return out
}

// TransformAll standardizes every vector.
func (s Stats) TransformAll(vectors []orbit.Features) []orbit.Features {
	out := make([]orbit.Features, len(vectors))
	for i, v := range vectors {
		out[i] = s.Transform(v)
	}
	return out
}
