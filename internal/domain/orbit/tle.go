package orbit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// WGS-72 constants as used by SGP4 initialisation.
const (
	earthRadiusKm = 6378.135
	earthMu       = 398600.8
	j2            = 0.001082616
	minutesPerDay = 1440.0
	deg2rad       = math.Pi / 180.0

	// minSemiMajorAxis is the SGP4 "mean elements" error bound, in earth radii.
	minSemiMajorAxis = 0.95

	minLine1Len = 61
	minLine2Len = 63
	tleLineLen  = 69
)

// xke is sqrt(GM) in earth radii^1.5 per minute.
var xke = 60.0 / math.Sqrt(earthRadiusKm*earthRadiusKm*earthRadiusKm/earthMu)

// Elements holds the mean elements of one TLE. Angles are radians and
// mean motions are rad/min.
type Elements struct {
	SatNum         int
	Classification byte
	IntlDesignator string
	Epoch          time.Time

	// Drag terms: first and second derivative of mean motion (rev/day^2,
	// rev/day^3, as printed) and the B* coefficient (1/earth radii).
	NDot  float64
	NDDot float64
	BStar float64

	Inclination  float64
	RAAN         float64
	Eccentricity float64
	ArgPerigee   float64
	MeanAnomaly  float64

	// KozaiMeanMotion is the mean motion as printed in the TLE.
	KozaiMeanMotion float64
	// MeanMotion is the Brouwer mean motion recovered during SGP4
	// initialisation; this is the value fed to the model.
	MeanMotion float64
	// SemiMajorAxis in earth radii.
	SemiMajorAxis float64

	RevNumber int
}

// Features returns the model input vector for e.
func (e Elements) Features() Features {
	return Features{
		FeatureInclination:  e.Inclination,
		FeatureEccentricity: e.Eccentricity,
		FeatureMeanMotion:   e.MeanMotion,
		FeatureRAAN:         e.RAAN,
		FeatureArgPerigee:   e.ArgPerigee,
		FeatureMeanAnomaly:  e.MeanAnomaly,
	}
}

// Decode parses a two-line element set and validates that the resulting
// elements are usable for propagation. Every failure wraps ErrExtraction.
func Decode(line1, line2 string) (Elements, error) {
	return decode(line1, line2, false)
}

func decode(line1, line2 string, checksum bool) (Elements, error) {
	line1 = strings.TrimRight(line1, " \r\n\t")
	line2 = strings.TrimRight(line2, " \r\n\t")

	if len(line1) < minLine1Len {
		return Elements{}, extractionErr("line 1 too short (%d chars)", len(line1))
	}
	if len(line2) < minLine2Len {
		return Elements{}, extractionErr("line 2 too short (%d chars)", len(line2))
	}
	if line1[0] != '1' || line2[0] != '2' {
		return Elements{}, extractionErr("unexpected line numbers %q/%q", line1[0], line2[0])
	}
	if checksum {
		if err := verifyChecksum(line1); err != nil {
			return Elements{}, fmt.Errorf("%w: line 1: %w", ErrExtraction, err)
		}
		if err := verifyChecksum(line2); err != nil {
			return Elements{}, fmt.Errorf("%w: line 2: %w", ErrExtraction, err)
		}
	}

	var (
		e   Elements
		err error
	)

	if e.SatNum, err = parseSatNum(column(line1, 2, 7)); err != nil {
		return Elements{}, extractionErr("satellite number: %v", err)
	}
	sat2, err := parseSatNum(column(line2, 2, 7))
	if err != nil {
		return Elements{}, extractionErr("line 2 satellite number: %v", err)
	}
	if sat2 != e.SatNum {
		return Elements{}, extractionErr("satellite numbers differ: %d vs %d", e.SatNum, sat2)
	}
	e.Classification = line1[7]
	e.IntlDesignator = strings.TrimSpace(column(line1, 9, 17))

	if e.Epoch, err = parseEpoch(column(line1, 18, 20), column(line1, 20, 32)); err != nil {
		return Elements{}, extractionErr("epoch: %v", err)
	}
	if e.NDot, err = parseFloat(column(line1, 33, 43)); err != nil {
		return Elements{}, extractionErr("ndot: %v", err)
	}
	if e.NDDot, err = parseImplied(column(line1, 44, 52)); err != nil {
		return Elements{}, extractionErr("nddot: %v", err)
	}
	if e.BStar, err = parseImplied(column(line1, 53, 61)); err != nil {
		return Elements{}, extractionErr("bstar: %v", err)
	}

	incl, err := parseFloat(column(line2, 8, 16))
	if err != nil {
		return Elements{}, extractionErr("inclination: %v", err)
	}
	raan, err := parseFloat(column(line2, 17, 25))
	if err != nil {
		return Elements{}, extractionErr("raan: %v", err)
	}
	ecc, err := parseFloat("0." + strings.TrimSpace(column(line2, 26, 33)))
	if err != nil {
		return Elements{}, extractionErr("eccentricity: %v", err)
	}
	argp, err := parseFloat(column(line2, 34, 42))
	if err != nil {
		return Elements{}, extractionErr("argument of perigee: %v", err)
	}
	mo, err := parseFloat(column(line2, 43, 51))
	if err != nil {
		return Elements{}, extractionErr("mean anomaly: %v", err)
	}
	revPerDay, err := parseFloat(column(line2, 52, 63))
	if err != nil {
		return Elements{}, extractionErr("mean motion: %v", err)
	}
	if rev := strings.TrimSpace(column(line2, 63, 68)); rev != "" {
		if e.RevNumber, err = strconv.Atoi(rev); err != nil {
			return Elements{}, extractionErr("revolution number: %v", err)
		}
	}

	e.Inclination = incl * deg2rad
	e.RAAN = raan * deg2rad
	e.Eccentricity = ecc
	e.ArgPerigee = argp * deg2rad
	e.MeanAnomaly = mo * deg2rad
	e.KozaiMeanMotion = revPerDay * 2 * math.Pi / minutesPerDay

	if e.Eccentricity < 0 || e.Eccentricity >= 1 {
		return Elements{}, extractionErr("eccentricity %g outside [0,1)", e.Eccentricity)
	}
	if e.Inclination < 0 || e.Inclination > math.Pi {
		return Elements{}, extractionErr("inclination %g deg outside [0,180]", incl)
	}
	if !(e.KozaiMeanMotion > 0) || math.IsInf(e.KozaiMeanMotion, 0) {
		return Elements{}, extractionErr("mean motion %g rev/day must be positive", revPerDay)
	}

	e.MeanMotion, e.SemiMajorAxis = unKozai(e.KozaiMeanMotion, e.Eccentricity, e.Inclination)
	if math.IsNaN(e.MeanMotion) || e.SemiMajorAxis < minSemiMajorAxis {
		return Elements{}, extractionErr("semi-major axis %.3f earth radii below %.2f", e.SemiMajorAxis, minSemiMajorAxis)
	}
	return e, nil
}

// unKozai recovers the Brouwer mean motion and semi-major axis from the
// Kozai mean motion, following the SGP4 initialisation step.
func unKozai(no, ecc, incl float64) (float64, float64) {
	const x2o3 = 2.0 / 3.0
	omeosq := 1.0 - ecc*ecc
	rteosq := math.Sqrt(omeosq)
	cosio := math.Cos(incl)
	cosio2 := cosio * cosio

	ak := math.Pow(xke/no, x2o3)
	d1 := 0.75 * j2 * (3.0*cosio2 - 1.0) / (rteosq * omeosq)
	del := d1 / (ak * ak)
	adel := ak * (1.0 - del*del - del*(1.0/3.0+134.0*del*del/81.0))
	del = d1 / (adel * adel)
	n := no / (1.0 + del)
	a := math.Pow(xke/n, x2o3)
	return n, a
}

func extractionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExtraction, fmt.Sprintf(format, args...))
}

// column returns line[from:to] clipped to the line length.
func column(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// parseImplied decodes the assumed-decimal exponent notation used for
// drag terms, e.g. " 12345-4" = 0.12345e-4 and "-11606-4" = -0.11606e-4.
func parseImplied(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	cut := strings.LastIndexAny(s, "+-")
	if cut <= 0 {
		return 0, fmt.Errorf("malformed implied-decimal field %q", s)
	}
	mantissa, err := strconv.ParseFloat("0."+s[:cut], 64)
	if err != nil {
		return 0, err
	}
	exp, err := strconv.Atoi(s[cut:])
	if err != nil {
		return 0, err
	}
	return sign * mantissa * math.Pow10(exp), nil
}

// parseSatNum accepts plain five digit catalog numbers and the Alpha-5
// extension, where a leading letter (I and O skipped) encodes 10..33.
func parseSatNum(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	if c := s[0]; c >= 'A' && c <= 'Z' {
		if c == 'I' || c == 'O' {
			return 0, fmt.Errorf("invalid alpha-5 prefix %q", c)
		}
		lead := int(c-'A') + 10
		if c > 'I' {
			lead--
		}
		if c > 'O' {
			lead--
		}
		rest, err := strconv.Atoi(s[1:])
		if err != nil {
			return 0, err
		}
		return lead*10000 + rest, nil
	}
	return strconv.Atoi(s)
}

func parseEpoch(yy, day string) (time.Time, error) {
	y, err := strconv.Atoi(strings.TrimSpace(yy))
	if err != nil {
		return time.Time{}, err
	}
	if y < 57 {
		y += 2000
	} else {
		y += 1900
	}
	d, err := parseFloat(day)
	if err != nil {
		return time.Time{}, err
	}
	if d < 1 || d >= 367 {
		return time.Time{}, fmt.Errorf("day of year %g out of range", d)
	}
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((d - 1) * float64(24*time.Hour))), nil
}

// Checksum computes the modulo-10 checksum of the first 68 columns:
// digits count their value and minus signs count one.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < tleLineLen-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

func verifyChecksum(line string) error {
	if len(line) < tleLineLen {
		return fmt.Errorf("%w: missing checksum column", ErrChecksum)
	}
	want := int(line[tleLineLen-1] - '0')
	if got := Checksum(line); got != want {
		return fmt.Errorf("%w: computed %d, line has %d", ErrChecksum, got, want)
	}
	return nil
}

// CatalogNumber reads the satellite number from columns 3-7 of either
// element line, accepting Alpha-5.
func CatalogNumber(line string) (int, error) {
	n, err := parseSatNum(column(line, 2, 7))
	if err != nil {
		return 0, extractionErr("satellite number: %v", err)
	}
	return n, nil
}
