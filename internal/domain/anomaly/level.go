package anomaly

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Risk calibration. The scale maps reconstruction error onto the 1..99
// band; it is tuned together with normalize.Epsilon.
const (
	RiskScale = 500.0
	MinRisk   = 1.0
	MaxRisk   = 99.0
)

// Level thresholds, exclusive lower bounds on the risk score.
const (
	criticalAbove = 90.0
	highAbove     = 70.0
	moderateAbove = 45.0
	lowAbove      = 20.0
)

// Level is an ordered severity band.
type Level int

const (
	Informational Level = iota
	Low
	Moderate
	High
	Critical
)

var levelNames = [...]string{"Informational", "Low", "Moderate", "High", "Critical"}

func (l Level) String() string {
	if l < Informational || l > Critical {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel is the inverse of Level.String, case-insensitive.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return Informational, fmt.Errorf("unknown level %q", s)
}

// MarshalJSON encodes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name.
func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// RiskScore maps a reconstruction error to the [MinRisk, MaxRisk] band.
// NaN maps to MaxRisk.
func RiskScore(mse float64) float64 {
	if math.IsNaN(mse) {
		return MaxRisk
	}
	return math.Max(MinRisk, math.Min(MaxRisk, mse*RiskScale))
}

// LevelFor buckets a risk score.
func LevelFor(risk float64) Level {
	switch {
	case risk > criticalAbove:
		return Critical
	case risk > highAbove:
		return High
	case risk > moderateAbove:
		return Moderate
	case risk > lowAbove:
		return Low
	default:
		return Informational
	}
}
