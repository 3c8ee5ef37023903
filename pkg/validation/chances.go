package validation

import (
	"math"
	"strconv"
	"strings"
)

// ChanceTolerance is the absolute tolerance when comparing the chance sum
// against 100.
const ChanceTolerance = 1e-5

// ParseChance coerces a raw chance field value to a float. A missing or empty
// value counts as 0. The chance fields are free-text inputs, so unparseable
// values are reachable; they yield NaN, which poisons the sum and fails the
// mapping. Negative values pass through unrejected.
func ParseChance(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// RoundChance rounds a single chance value to 5 decimal places. Rounding
// happens per value, before summation, so floating-point drift cannot
// compound across many items.
func RoundChance(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// SumChances computes the total of a chance mapping under the rounding
// discipline above. It is O(len(chances)) with no allocation, cheap enough to
// run on every keystroke of the authoring wizard.
func SumChances(chances map[string]string) float64 {
	total := 0.0
	for _, raw := range chances {
		total += RoundChance(ParseChance(raw))
	}
	return total
}

// ValidateChances reports whether the chance mapping sums to 100 within
// tolerance, along with the computed total for display.
func ValidateChances(chances map[string]string) (total float64, ok bool) {
	total = SumChances(chances)
	return total, math.Abs(total-100) < ChanceTolerance
}

// SumChanceValues is SumChances for an already-parsed mapping, as carried by
// a ContainerConfig record.
func SumChanceValues(chances map[string]float64) float64 {
	total := 0.0
	for _, v := range chances {
		total += RoundChance(v)
	}
	return total
}

// ValidateChanceValues is ValidateChances for an already-parsed mapping.
func ValidateChanceValues(chances map[string]float64) (total float64, ok bool) {
	total = SumChanceValues(chances)
	return total, math.Abs(total-100) < ChanceTolerance
}
