package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrEmptyChunkID is returned for a chunk without an id.
	ErrEmptyChunkID = errors.New("chunk id is required")

	// ErrContentTooLarge is returned when content exceeds the configured maximum length.
	ErrContentTooLarge = errors.New("chunk content too large")

	// ErrInvalidMetadata is returned for metadata that cannot be represented as JSON.
	ErrInvalidMetadata = errors.New("invalid chunk metadata")

	// ErrCancelled marks items that were never analyzed because the request was cancelled.
	ErrCancelled = errors.New("analysis cancelled")

	// ErrAnalysisPanic marks items whose analysis panicked.
	ErrAnalysisPanic = errors.New("analysis panicked")
)

// Validate checks c against the limits of an engine. maxLength is measured in
// code points; zero or less disables the length check.
func (c Chunk) Validate(maxLength int) error {
	if c.ID == "" {
		return ErrEmptyChunkID
	}
	if maxLength > 0 {
		if n := utf8.RuneCountInString(c.Content); n > maxLength {
			return fmt.Errorf("%w: %d characters exceeds maximum %d", ErrContentTooLarge, n, maxLength)
		}
	}
	for k, v := range c.Metadata {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidMetadata)
		}
		if _, err := json.Marshal(v); err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrInvalidMetadata, k, err)
		}
	}
	return nil
}
