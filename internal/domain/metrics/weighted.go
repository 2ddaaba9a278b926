package metrics

import "math"

// weightedValue is one (value, weight) contribution to a weighted mean.
// Keeping explicit pairs instead of padding arrays keeps memory bounded for
// arbitrarily large weights and makes the mean computation obvious.
type weightedValue struct {
	value  float64
	weight float64
}

// weightedMean computes sum(v*w)/sum(w) over the pairs, skipping entries with
// non-positive weight.  Returns 0 when no weight remains.
func weightedMean(pairs []weightedValue) float64 {
	var sum, weight float64
	for _, p := range pairs {
		if p.weight <= 0 {
			continue
		}
		sum += p.value * p.weight
		weight += p.weight
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// roundTo rounds v to the given number of decimal places.  Fixed rounding at
// finalization keeps output stable across runs despite floating-point noise.
func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

// safeRatio divides a by b, returning 0 on a zero denominator.  Zero-traffic
// nodes are normal input, never an error.
func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
