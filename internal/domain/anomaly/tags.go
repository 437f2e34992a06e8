package anomaly

import "github.com/okian/orbitwatch/internal/domain/orbit"

var techniques = [...]string{
	"Unannounced Maneuver",
	"RF Interference",
	"Proximity Operation",
	"Attitude Instability",
}

var classifications = map[orbit.Regime]string{
	orbit.RegimeGEO: "Geosynchronous Asset",
	orbit.RegimeLEO: "Low Earth Orbit Asset",
}

// Tags returns the descriptive technique and classification labels for a
// satellite. The technique is a fixed lookup on the catalog number, not an
// inference.
func Tags(noradID int, regime orbit.Regime) (technique, classification string) {
	n := len(techniques)
	i := ((noradID % n) + n) % n
	c, ok := classifications[regime]
	if !ok {
		c = classifications[orbit.RegimeLEO]
	}
	return techniques[i], c
}
