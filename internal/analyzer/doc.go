// Package analyzer implements the lexical heuristics used to score a chunk.
//
// Every function is pure. Profiles are passed by value on each call, so a
// single process can score chunks for several domains at once without any
// shared mutable state. All scores lie in [0,1]; empty or whitespace-only
// content scores 0 on every metric.
//
// The heuristics are lexical proxies only:
//
//   - Quality: mean of length fit, sentence structure, vocabulary diversity
//     and coherence.
//   - Redundancy: mean of phrase, sentence and word repetition. Higher is
//     worse.
//   - Similarity: repeated content words within one chunk, or the Jaccard
//     overlap of two chunks. Higher is worse.
//   - Size: fit of the content length to the profile bounds.
package analyzer
