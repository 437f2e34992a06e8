// Package orbit decodes two-line element sets and turns them into the
// fixed feature vectors the anomaly model is trained on.
package orbit

// FeatureCount is the width of a feature vector.
const FeatureCount = 6

// Feature indexes into Features.
const (
	FeatureInclination = iota
	FeatureEccentricity
	FeatureMeanMotion
	FeatureRAAN
	FeatureArgPerigee
	FeatureMeanAnomaly
)

// GEOMeanMotionThreshold separates slow (geosynchronous-like) orbits from
// everything else, in rad/min. A geostationary orbit is about 0.00437.
const GEOMeanMotionThreshold = 0.005

// Record is one catalog entry as supplied by the ingestion side.
// JSON names follow the CelesTrak / OrbitWatch backend shape.
type Record struct {
	NoradID    int    `json:"NORAD_CAT_ID"`
	Name       string `json:"OBJECT_NAME,omitempty"`
	Line1      string `json:"TLE_LINE1"`
	Line2      string `json:"TLE_LINE2"`
	ObjectType string `json:"OBJECT_TYPE,omitempty"`
	Owner      string `json:"OWNER,omitempty"`
}

// Features is the ordered model input:
// inclination (rad), eccentricity, mean motion (rad/min), RAAN (rad),
// argument of perigee (rad), mean anomaly (rad).
type Features [FeatureCount]float64

// Slice returns a copy of f as a slice.
func (f Features) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, f[:])
	return out
}

// FeatureNames lists the feature labels in vector order.
func FeatureNames() []string {
	return []string{"inclination", "eccentricity", "mean_motion", "raan", "arg_perigee", "mean_anomaly"}
}

// Regime is a coarse orbital regime flag.
type Regime string

const (
	RegimeGEO Regime = "GEO"
	RegimeLEO Regime = "LEO"
)

// RegimeOf classifies a feature vector by its mean motion.
func RegimeOf(f Features) Regime {
	if f[FeatureMeanMotion] < GEOMeanMotionThreshold {
		return RegimeGEO
	}
	return RegimeLEO
}
