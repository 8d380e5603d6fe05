package llm

import (
	"strings"
	"unicode"
)

// Chunker splits a document into delegate-sized excerpts. Splitting is
// sentence-aware so a date and the act it belongs to stay in the same
// excerpt, with overlap carrying context across the boundary.
type Chunker struct {
	// MaxChunkSize is the excerpt budget in estimated tokens
	MaxChunkSize int

	// Overlap is the context carried between consecutive excerpts, in
	// estimated tokens
	Overlap int
}

// Default excerpt budget, roughly 5000 characters of source text.
const (
	defaultChunkTokens   = 1250
	defaultOverlapTokens = 50
)

// NewChunker returns a chunker; zero values select the defaults.
func NewChunker(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultChunkTokens
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = defaultOverlapTokens
	}
	return &Chunker{MaxChunkSize: maxChunkSize, Overlap: overlap}
}

// Chunk splits content into overlapping excerpts. Content that fits the
// budget comes back as a single excerpt; empty content yields none.
func (c *Chunker) Chunk(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if EstimateTokens(content) <= c.MaxChunkSize {
		return []string{content}
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0
	var tail []string

	for _, sentence := range sentences {
		tokens := EstimateTokens(sentence)
		if currentTokens+tokens > c.MaxChunkSize && currentTokens > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0

			// seed the next excerpt with the tail of the previous one
			overlapTokens := 0
			start := len(tail)
			for i := len(tail) - 1; i >= 0; i-- {
				t := EstimateTokens(tail[i])
				if overlapTokens+t > c.Overlap {
					break
				}
				overlapTokens += t
				start = i
			}
			for i := start; i < len(tail); i++ {
				current.WriteString(tail[i])
				currentTokens += EstimateTokens(tail[i])
			}
			tail = tail[start:]
		}

		current.WriteString(sentence)
		currentTokens += tokens
		tail = append(tail, sentence)
		if len(tail) > 50 {
			tail = tail[len(tail)-50:]
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return dedupeChunks(chunks)
}

// EstimateTokens approximates token count at 4 characters per token,
// rounding up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// splitSentences cuts text at sentence terminators, keeping the
// terminator with its sentence. Newlines also terminate so dated list
// entries split cleanly.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			// don't cut numeric dates like 15.03.2024
			if r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			s := current.String()
			if strings.TrimSpace(s) != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := current.String(); strings.TrimSpace(s) != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func dedupeChunks(chunks []string) []string {
	seen := make(map[string]bool, len(chunks))
	var out []string
	for _, c := range chunks {
		key := strings.TrimSpace(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
