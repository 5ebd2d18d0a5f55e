package scoring

// Normalize returns the adjusted value of a rating-scale answer.
// Reverse-scored items are reflected around the scale midpoint so that
// scaleMin maps to scaleMax and the other way round. The value is not
// clamped; callers reject out-of-range answers before they get here.
func Normalize(raw, scaleMin, scaleMax float64, isReverse bool) float64 {
	if !isReverse {
		return raw
	}
	return scaleMax - raw + scaleMin
}
