package pipeline

import "strings"

const (
	// DefaultChunkSize is the target chunk window in characters
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many characters consecutive chunks share
	DefaultChunkOverlap = 200
)

func isBoundary(c rune) bool {
	switch c {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// SplitChunks splits text into overlapping windows, preferring to cut at a
// sentence terminator or newline inside the window rather than mid-sentence.
// The cut character stays with the leading chunk and the next window starts
// overlap characters before it. Empty chunks after trimming are discarded.
// Sizes count characters, not bytes, so cuts never land mid-rune.
func SplitChunks(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}

	runes := []rune(text)

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
			if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Search backward inside the window for a natural break.
		cut := -1
		for i := end - 1; i > start; i-- {
			if isBoundary(runes[i]) {
				cut = i
				break
			}
		}

		var next int
		if cut > start {
			end = cut + 1
			next = end - overlap
		} else {
			next = end
		}
		// Force progress when overlap would revisit the same start.
		if next <= start {
			next = end
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = next
	}
	return chunks
}
