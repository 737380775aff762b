// Package pipeline turns extracted document text into persisted bundles of
// validated, deduplicated multiple-choice questions.
package pipeline

import "unicode"

// Chunker splits raw text into character-bounded segments for generation
// requests. Chunks are non-overlapping and cover the input left to right, so
// concatenating them reproduces the input (up to the MaxTotal cap).
type Chunker struct {
	// Size is the target chunk size in characters (runes).
	Size int
	// MaxTotal caps the total number of characters processed; text beyond
	// the cap is dropped. Zero means no cap.
	MaxTotal int
}

// Split divides text into chunks. It never splits inside a word: the cut
// point is moved back to the nearest line, sentence, or word boundary within
// a look-back window. Empty input yields no chunks.
func (c Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if c.MaxTotal > 0 && len(runes) > c.MaxTotal {
		runes = runes[:c.MaxTotal]
	}
	size := c.Size
	if size <= 0 {
		size = 4000
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= size {
			chunks = append(chunks, string(runes))
			break
		}
		cut := splitPoint(runes, size)
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}

// splitPoint finds where to cut a chunk of at most size runes, preferring a
// line break, then a sentence end, then any whitespace, scanning back within
// a window. A single unbroken run longer than the window is cut hard.
func splitPoint(runes []rune, size int) int {
	window := size / 8
	if window < 16 {
		window = 16
	}
	low := size - window
	if low < 1 {
		low = 1
	}

	for i := size; i >= low; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := size; i >= low; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i]) {
				return i
			}
		}
	}
	for i := size; i >= low; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return size
}
