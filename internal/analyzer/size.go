package analyzer

import "github.com/fyrsmithlabs/chunkopt/internal/profile"

// Size scores how well the content length fits the profile bounds.
func Size(t Tokens, p profile.Profile) float64 {
	if t.Blank() {
		return 0
	}
	return SizeForLength(t.Length, p.Bounds)
}

// SizeForLength scores a length in code points against b. Inside the optimal
// range the score is 1; between the hard bounds and the optimal range it
// falls linearly from 1 to 0.6; outside the hard bounds it keeps falling
// toward 0.
func SizeForLength(n int, b profile.Bounds) float64 {
	l := float64(n)
	switch {
	case n < b.Min:
		return profile.Clamp(l / float64(b.Min))
	case n > b.Max:
		return profile.Clamp(1 - (l-float64(b.Max))/float64(b.Max))
	case n >= b.OptimalLow && n <= b.OptimalHigh:
		return 1
	case n < b.OptimalLow:
		return profile.Clamp(0.6 + 0.4*(l-float64(b.Min))/float64(b.OptimalLow-b.Min))
	default:
		return profile.Clamp(0.6 + 0.4*(float64(b.Max)-l)/float64(b.Max-b.OptimalHigh))
	}
}
