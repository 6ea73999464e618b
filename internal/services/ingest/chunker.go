// Package ingest turns landmark source documents into embedded, validated
// vector records and writes them to the index.
package ingest

import "strings"

// Chunker splits document text into fixed-size overlapping chunks, breaking
// on word boundaries so no chunk starts or ends mid-word.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker targeting size characters per chunk with the
// given overlap between consecutive chunks. Overlap is clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into chunks. Whitespace runs are collapsed first so
// chunk boundaries are stable regardless of source formatting.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start
		length := 0
		for end < len(words) {
			wordLen := len(words[end])
			if length > 0 {
				wordLen++ // joining space
			}
			if length+wordLen > c.size && length > 0 {
				break
			}
			length += wordLen
			end++
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
		start = c.backtrack(words, start, end)
	}
	return chunks
}

// backtrack moves the next chunk's start back far enough to cover the
// configured overlap. The result always advances past prev so chunking
// terminates even on degenerate input.
func (c *Chunker) backtrack(words []string, prev, end int) int {
	if c.overlap == 0 {
		return end
	}
	length := 0
	start := end
	for start > prev+1 {
		wordLen := len(words[start-1])
		if length > 0 {
			wordLen++
		}
		if length+wordLen > c.overlap {
			break
		}
		length += wordLen
		start--
	}
	return start
}
