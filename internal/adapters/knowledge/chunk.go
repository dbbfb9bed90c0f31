package knowledge

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunk splits text on blank lines and packs the paragraphs into chunks of
// at most size runes joined by a blank line. Each chunk after the first
// starts with trailing paragraphs of the previous chunk totalling at most
// overlap runes. A single paragraph longer than size becomes its own chunk.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var paragraphs []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	const sep = "\n\n"
	sepLen := utf8.RuneCountInString(sep)

	var chunks []string
	var current []string
	length := 0

	for _, p := range paragraphs {
		pLen := utf8.RuneCountInString(p)
		joined := pLen
		if len(current) > 0 {
			joined += sepLen
		}

		if len(current) > 0 && length+joined > size {
			chunks = append(chunks, strings.Join(current, sep))

			// Keep trailing paragraphs as overlap while they fit
			for len(current) > 0 && (length > overlap || length+sepLen+pLen > size) {
				length -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					length -= sepLen
				}
				current = current[1:]
			}
			joined = pLen
			if len(current) > 0 {
				joined += sepLen
			}
		}

		current = append(current, p)
		length += joined
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}
	return chunks
}
