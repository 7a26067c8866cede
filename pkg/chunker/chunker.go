package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the target segment size in bytes.
const DefaultChunkSize = 1024

// Split cuts text into contiguous segments of roughly size bytes.
// Segments never overlap and, concatenated in order, reproduce the
// input exactly (invalid UTF-8 sequences are repaired with the
// replacement rune first). A text shorter than size comes back as a
// single segment.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	text = strings.ToValidUTF8(text, string(utf8.RuneError))

	if len(text) <= size {
		return []string{text}
	}

	var segments []string
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			segments = append(segments, text[start:])
			break
		}
		// back up so the cut lands on a rune boundary
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			end = start + size
		}
		segments = append(segments, text[start:end])
		start = end
	}
	return segments
}
