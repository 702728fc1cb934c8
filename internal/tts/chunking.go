package tts

import (
	"regexp"
	"strings"
)

// MaxRequestChars bounds the text sent in a single synthesis request. Hosted
// speech backends reject or truncate very long inputs, so chapters are split
// at sentence boundaries and the rendered segments concatenated.
const MaxRequestChars = 2000

var requestSentenceRe = regexp.MustCompile(`([.!?])\s+`)

// SplitForSynthesis divides chapter text into request-sized pieces without
// cutting words. Sentences are packed greedily; a sentence longer than the
// bound becomes its own oversized piece, left for the backend to handle.
func SplitForSynthesis(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = MaxRequestChars
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	marked := requestSentenceRe.ReplaceAllString(trimmed, "$1\x00")

	var (
		pieces  []string
		current string
	)

	for _, sentence := range strings.Split(marked, "\x00") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		switch {
		case current == "":
			current = sentence
		case len(current)+len(sentence)+1 > maxChars:
			pieces = append(pieces, current)
			current = sentence
		default:
			current += " " + sentence
		}
	}

	if current != "" {
		pieces = append(pieces, current)
	}

	return pieces
}
