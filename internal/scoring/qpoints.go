package scoring

import "math"

// Q-points body-mass normalization. The denominator is a saturating
// exponential of body mass; the numerator scales so that a reference lifter
// scores near 100.
const (
	qPointsScaleMen   = 463.26
	qPointsShiftMen   = 146.658
	qPointsSlopeMen   = 0.0106
	qPointsScaleWomen = 306.54
	qPointsShiftWomen = 117.655
	qPointsSlopeWomen = 0.0124
)

// CalculateQPoints normalizes a total by body mass, with an optional masters
// age adjustment when age > 0.
func CalculateQPoints(total, bodyWeight float64, gender string, age int) float64 {
	if total <= 0 || bodyWeight <= 0 {
		return 0
	}
	scale, shift, slope := qPointsScaleMen, qPointsShiftMen, qPointsSlopeMen
	if isFemale(gender) {
		scale, shift, slope = qPointsScaleWomen, qPointsShiftWomen, qPointsSlopeWomen
	}
	denom := shift * (1 - math.Exp(-slope*bodyWeight))
	if denom <= 0 {
		return 0
	}
	points := total * scale / denom / 10
	if age > 30 {
		points *= GetMastersAgeFactor(age, gender)
	}
	return points
}
