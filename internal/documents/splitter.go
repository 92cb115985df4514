package documents

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraph, line, word, character
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter breaks text at the largest boundary that yields pieces
// under the size limit, then merges neighbouring pieces back up to the limit
// with a bounded overlap. Lengths are counted in runes. A separator stays at
// the start of the piece that follows it.
type RecursiveSplitter struct {
	size       int
	overlap    int
	separators []string
}

// NewRecursiveSplitter creates a splitter with DefaultSeparators
func NewRecursiveSplitter(size, overlap int) (*RecursiveSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap > size {
		return nil, fmt.Errorf("chunk overlap %d must be between 0 and chunk size %d", overlap, size)
	}
	return &RecursiveSplitter{size: size, overlap: overlap, separators: DefaultSeparators}, nil
}

// Split returns the chunks of text in source order
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeep(text, separator) {
		if utf8.RuneCountInString(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge joins pieces into chunks no longer than size, carrying up to overlap
// runes of trailing pieces into the next chunk
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n > s.size && len(current) > 0 {
			if chunk := joinStrip(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if chunk := joinStrip(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeep splits on sep, prefixing every piece after the first with sep.
// An empty sep splits into runes. Empty pieces are dropped.
func splitKeep(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	if raw[0] != "" {
		parts = append(parts, raw[0])
	}
	for _, r := range raw[1:] {
		parts = append(parts, sep+r)
	}
	return parts
}

func joinStrip(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}
