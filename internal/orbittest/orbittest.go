// Package orbittest builds syntactically valid element sets for tests and
// demo catalogs.
package orbittest

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/okian/orbitwatch/internal/domain/orbit"
)

// Reference orbits, mean motion in rev/day.
const (
	GEOMeanMotion = 1.00270000
	LEOMeanMotion = 15.49000000
)

// Elements describes one synthetic TLE in the units printed on the lines:
// degrees for angles and revolutions per day for mean motion.
type Elements struct {
	NoradID      int
	Name         string
	EpochYear    int // two digit
	EpochDay     float64
	Inclination  float64
	RAAN         float64
	Eccentricity float64
	ArgPerigee   float64
	MeanAnomaly  float64
	MeanMotion   float64
	RevNumber    int
}

// GEO returns a geostationary-like element set.
func GEO(id int) Elements {
	return Elements{
		NoradID:      id,
		Name:         "GEO-" + strconv.Itoa(id),
		EpochYear:    24,
		EpochDay:     100.5,
		Inclination:  0.0500,
		RAAN:         80.0000,
		Eccentricity: 0.0002,
		ArgPerigee:   120.0000,
		MeanAnomaly:  200.0000,
		MeanMotion:   GEOMeanMotion,
		RevNumber:    1000,
	}
}

// LEO returns an ISS-like element set.
func LEO(id int) Elements {
	return Elements{
		NoradID:      id,
		Name:         "LEO-" + strconv.Itoa(id),
		EpochYear:    24,
		EpochDay:     100.5,
		Inclination:  51.6416,
		RAAN:         247.4627,
		Eccentricity: 0.0006703,
		ArgPerigee:   130.5360,
		MeanAnomaly:  325.0288,
		MeanMotion:   LEOMeanMotion,
		RevNumber:    45000,
	}
}

// Lines formats e as a two-line element set with valid checksums.
func Lines(e Elements) (string, string) {
	l1 := fmt.Sprintf("1 %05dU %-8s %02d%012.8f  .00000000  00000-0  00000-0 0  999",
		e.NoradID, "24001A", e.EpochYear, e.EpochDay)
	l1 += strconv.Itoa(orbit.Checksum(l1))

	ecc := int(e.Eccentricity*1e7 + 0.5)
	l2 := fmt.Sprintf("2 %05d %8.4f %8.4f %07d %8.4f %8.4f %11.8f%5d",
		e.NoradID, e.Inclination, e.RAAN, ecc, e.ArgPerigee, e.MeanAnomaly, e.MeanMotion, e.RevNumber%100000)
	l2 += strconv.Itoa(orbit.Checksum(l2))
	return l1, l2
}

// Record wraps e into a catalog record.
func Record(e Elements) orbit.Record {
	l1, l2 := Lines(e)
	return orbit.Record{NoradID: e.NoradID, Name: e.Name, Line1: l1, Line2: l2, ObjectType: "PAYLOAD"}
}

// Records converts a list of element sets.
func Records(es ...Elements) []orbit.Record {
	out := make([]orbit.Record, len(es))
	for i, e := range es {
		out[i] = Record(e)
	}
	return out
}

// Catalog generates n LEO records jittered around LEO(…), deterministic for
// a given seed. Useful as a realistic training population.
func Catalog(n int, seed int64) []orbit.Record {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data
	out := make([]orbit.Record, n)
	for i := range out {
		e := LEO(10000 + i)
		e.Inclination += rng.Float64()*2 - 1
		e.RAAN = rng.Float64() * 359
		e.Eccentricity = 0.0001 + rng.Float64()*0.002
		e.ArgPerigee = rng.Float64() * 359
		e.MeanAnomaly = rng.Float64() * 359
		e.MeanMotion += rng.Float64()*0.4 - 0.2
		out[i] = Record(e)
	}
	return out
}
