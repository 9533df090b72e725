package profile

import "math"

// Overall combines the four sub-scores using the profile weights.
// Redundancy and similarity are inverted since higher raw values are worse.
// The result is clamped into [0,1]; weights are not required to sum to 1.
func (p Profile) Overall(quality, redundancy, size, similarity float64) float64 {
	overall := quality*p.QualityWeight +
		(1-redundancy)*p.RedundancyWeight +
		size*p.SizeWeight +
		(1-similarity)*p.SimilarityWeight
	return Clamp(overall)
}

// Clamp bounds v into [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
