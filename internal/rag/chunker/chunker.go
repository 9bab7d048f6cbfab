// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultSize    = 900
	DefaultOverlap = 100
)

var ErrInvalidConfig = errors.New("invalid chunker config")

// Split trims text and returns windows of at most size runes. Consecutive windows
// share overlap runes and the last window always ends at the end of the text.
// Whitespace-only input yields an empty slice.
func Split(text string, size, overlap int) ([]string, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return []string{}, nil
	}
	out := make([]string, 0, len(runes)/(size-overlap)+1)
	start := 0
	for {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return out, nil
}

func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive (got %d)", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative (got %d)", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidConfig, overlap, size)
	}
	return nil
}
