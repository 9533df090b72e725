package profile

// Priority is the urgency tier of an optimization suggestion.
type Priority string

// Priority tiers, in increasing urgency.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// High-threshold multipliers applied to a metric's threshold.
const (
	DefaultHighFactor    = 0.8
	RedundancyHighFactor = 1.2
	SimilarityHighFactor = 1.1
)

// Actionable reports whether a suggestion should be emitted for p.
func (p Priority) Actionable() bool {
	return p == PriorityHigh || p == PriorityMedium
}

// Rank orders tiers for sorting: HIGH=2, MEDIUM=1, LOW=0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Classify uses the default high threshold of threshold*0.8.
func Classify(score, threshold float64) Priority {
	return ClassifyWith(score, threshold, threshold*DefaultHighFactor)
}

// ClassifyWith returns HIGH when score < high, MEDIUM when score < threshold,
// LOW otherwise.
//
// The engine passes high > threshold for redundancy (x1.2) and similarity
// (x1.1). With that ordering any score below threshold is already below high,
// so MEDIUM is unreachable and those metrics split two ways, HIGH or LOW.
// This is the long-standing behavior and is kept as is.
func ClassifyWith(score, threshold, high float64) Priority {
	switch {
	case score < high:
		return PriorityHigh
	case score < threshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
