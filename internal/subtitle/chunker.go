// Package subtitle implements the caption chunking, cue timing, and SRT
// serialization engine for chapter narration.
package subtitle

import (
	"regexp"
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// DefaultMaxChars is the default upper bound on caption text length.
const DefaultMaxChars = 80

// Boundary patterns for caption splitting.
const (
	sentenceBoundaryPattern = `([.!?])\s+`
	whitespaceRunPattern    = `\s+`
)

// clauseJoin restores the comma the clause split consumed; its two characters
// count against the bound when clauses are merged.
const clauseJoin = ", "

var (
	sentenceBoundaryRe = regexp.MustCompile(sentenceBoundaryPattern)
	whitespaceRunRe    = regexp.MustCompile(whitespaceRunPattern)
)

// Chunker splits chapter body text into caption-sized units. It is a pure
// function of the input text and the character bound, so identical inputs
// always produce identical output.
type Chunker struct {
	maxChars int
}

// NewChunker creates a chunker with the given caption length bound. A
// non-positive bound falls back to DefaultMaxChars.
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	return &Chunker{maxChars: maxChars}
}

// Split turns a chapter body into ordered caption units. Paragraph breaks and
// whitespace runs are collapsed first, then sentences are packed greedily
// left to right. A sentence longer than the bound is split on commas, and as
// a last resort on words. A single word longer than the bound is emitted as
// its own oversized unit rather than truncated.
func (c *Chunker) Split(body string) []core.CaptionUnit {
	normalized := normalizeWhitespace(body)
	if normalized == "" {
		return nil
	}

	sentences := splitSentences(normalized)

	var (
		chunks  []string
		current string
	)

	for _, sentence := range sentences {
		if len(sentence) > c.maxChars {
			for _, part := range c.splitLongSentence(sentence) {
				chunks, current = c.pack(chunks, current, part)
			}

			continue
		}

		chunks, current = c.pack(chunks, current, sentence)
	}

	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return toUnits(chunks)
}

// MaxChars returns the configured caption length bound.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// pack appends piece to the running buffer, closing the buffer into a new
// chunk when the addition would exceed the bound. Packing is strictly greedy;
// there is no lookahead rebalancing.
func (c *Chunker) pack(chunks []string, current, piece string) ([]string, string) {
	if current == "" {
		return chunks, piece
	}

	if len(current)+len(piece)+1 > c.maxChars {
		return append(chunks, strings.TrimSpace(current)), piece
	}

	return chunks, current + " " + piece
}

// splitLongSentence breaks an oversized sentence on comma boundaries, packing
// the clauses greedily. A sentence with no commas falls back to word packing.
func (c *Chunker) splitLongSentence(sentence string) []string {
	parts := strings.Split(sentence, ",")
	if len(parts) > 1 {
		return c.packClauses(parts)
	}

	return c.packWords(strings.Fields(sentence))
}

func (c *Chunker) packClauses(parts []string) []string {
	var (
		chunks  []string
		current string
	)

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// A clause that alone exceeds the bound is word-packed in place.
		if len(part) > c.maxChars {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}

			wordChunks := c.packWords(strings.Fields(part))
			if len(wordChunks) > 0 {
				chunks = append(chunks, wordChunks[:len(wordChunks)-1]...)
				current = wordChunks[len(wordChunks)-1]
			}

			continue
		}

		switch {
		case current == "":
			current = part
		case len(current)+len(part)+len(clauseJoin) > c.maxChars:
			chunks = append(chunks, current)
			current = part
		default:
			// Re-attach the comma the split consumed.
			current += clauseJoin + part
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

func (c *Chunker) packWords(words []string) []string {
	var (
		chunks  []string
		current string
	)

	for _, word := range words {
		switch {
		case current == "":
			current = word
		case len(current)+len(word)+1 > c.maxChars:
			chunks = append(chunks, current)
			current = word
		default:
			current += " " + word
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// normalizeWhitespace collapses paragraph breaks and whitespace runs into
// single spaces. Captions do not preserve the original line layout.
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(text, " "))
}

// splitSentences divides text on terminal punctuation followed by whitespace,
// keeping the punctuation attached to its sentence.
func splitSentences(text string) []string {
	marked := sentenceBoundaryRe.ReplaceAllString(text, "$1\x00")

	var sentences []string

	for _, part := range strings.Split(marked, "\x00") {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}

	return sentences
}

func toUnits(chunks []string) []core.CaptionUnit {
	var units []core.CaptionUnit

	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		units = append(units, core.CaptionUnit{
			Text:    chunk,
			Ordinal: len(units),
		})
	}

	return units
}
