package analyzer

import "github.com/fyrsmithlabs/chunkopt/internal/profile"

// Scores are the four raw sub-scores of a chunk.
type Scores struct {
	Quality    float64
	Redundancy float64
	Size       float64
	Similarity float64
}

// Analyze tokenizes content once and runs every analyzer against p.
func Analyze(content string, p profile.Profile) Scores {
	t := Tokenize(content)
	return Scores{
		Quality:    Quality(t, p),
		Redundancy: Redundancy(t),
		Size:       Size(t, p),
		Similarity: Similarity(t),
	}
}

// Overall aggregates s with the profile weights.
func (s Scores) Overall(p profile.Profile) float64 {
	return p.Overall(s.Quality, s.Redundancy, s.Size, s.Similarity)
}
