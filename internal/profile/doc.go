// Package profile holds the domain profiles used to weight and classify chunk
// scores.
//
// A Profile is an immutable value: weights for the four sub-scores, the
// thresholds used by the priority classifier, and the length bounds consumed
// by the size and quality analyzers. Profiles are looked up by name in a
// Table that is built once at startup and never mutated afterwards, so the
// same Profile value can be handed to any number of concurrent analyses.
//
// Four profiles are built in:
//
//	default     general purpose content
//	operations  runbooks and operational documentation
//	ecommerce   product and catalogue content
//	medical     clinical content with strict quality requirements
//
// Lookups are case-insensitive and unknown names resolve to the default
// profile rather than failing.
//
// # Scoring
//
// Overall combines the four sub-scores into one value, inverting redundancy
// and similarity because higher raw values are worse:
//
//	overall = quality*qw + (1-redundancy)*rw + size*sw + (1-similarity)*simw
//
// Classify maps a sub-score to a Priority tier against a threshold. See
// ClassifyWith for the high-threshold behavior used for redundancy and
// similarity.
package profile
