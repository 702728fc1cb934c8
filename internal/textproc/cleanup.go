// Package textproc provides deterministic cleanup of extracted curriculum
// text for narration.
//
// The cleaner is the fallback behind the LLM rewrite capability: it strips
// artifacts that read badly aloud (figure and table references, footnote
// markers) and expands abbreviations into spoken forms, without changing the
// meaning of the text.
package textproc

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for cleanup.
const (
	figureRefPattern      = `(?i)\(Fig\.\s*\d+[^)]*\)`
	tableRefPattern       = `(?i)\(Table\s*\d+[^)]*\)`
	figureCaptionPattern  = `(?i)Figure\s*\d+[^\n]*`
	tableCaptionPattern   = `(?i)Table\s*\d+[^\n]*`
	bracketFootnote       = `\[\d+\]`
	parenFootnote         = `\(\d+\)`
	multiBlankLinePattern = `\n\s*\n\s*\n+`
	spaceRunPattern       = `[ \t]+`
	bareIntegerPattern    = `\b\d+\b`
)

// Spoken replacements for abbreviations that trip up TTS engines.
const (
	ieSpoken  = "that is"
	egSpoken  = "for example"
	etcSpoken = "and so on"
	vsSpoken  = "versus"
)

// Cleaner normalizes raw chapter text into speech-friendly prose.
type Cleaner struct {
	figureRef      *regexp.Regexp
	tableRef       *regexp.Regexp
	figureCaption  *regexp.Regexp
	tableCaption   *regexp.Regexp
	bracketNote    *regexp.Regexp
	parenNote      *regexp.Regexp
	multiBlankLine *regexp.Regexp
	spaceRun       *regexp.Regexp
	bareInteger    *regexp.Regexp
	abbreviations  *strings.Replacer
}

// NewCleaner creates a cleaner with precompiled patterns and replacers.
func NewCleaner() *Cleaner {
	abbreviations := []string{
		"i.e.", ieSpoken,
		"I.e.", ieSpoken,
		"e.g.", egSpoken,
		"E.g.", egSpoken,
		"etc.", etcSpoken,
		"vs.", vsSpoken,
	}

	return &Cleaner{
		figureRef:      regexp.MustCompile(figureRefPattern),
		tableRef:       regexp.MustCompile(tableRefPattern),
		figureCaption:  regexp.MustCompile(figureCaptionPattern),
		tableCaption:   regexp.MustCompile(tableCaptionPattern),
		bracketNote:    regexp.MustCompile(bracketFootnote),
		parenNote:      regexp.MustCompile(parenFootnote),
		multiBlankLine: regexp.MustCompile(multiBlankLinePattern),
		spaceRun:       regexp.MustCompile(spaceRunPattern),
		bareInteger:    regexp.MustCompile(bareIntegerPattern),
		abbreviations:  strings.NewReplacer(abbreviations...),
	}
}

// CleanForNarration applies the full cleanup pipeline. The transformation is
// deterministic: the same input always yields the same output.
func (c *Cleaner) CleanForNarration(text string) string {
	if text == "" {
		return text
	}

	cleaned := c.removeVisualReferences(text)
	cleaned = c.removeFootnoteMarkers(cleaned)
	cleaned = c.spellNumbers(cleaned)
	cleaned = c.normalizeWhitespace(cleaned)
	cleaned = c.abbreviations.Replace(cleaned)

	return ensureSentenceEnding(strings.TrimSpace(cleaned))
}

// removeVisualReferences strips references to figures and tables, which only
// make sense on the printed page.
func (c *Cleaner) removeVisualReferences(text string) string {
	text = c.figureRef.ReplaceAllString(text, "")
	text = c.tableRef.ReplaceAllString(text, "")
	text = c.figureCaption.ReplaceAllString(text, "")

	return c.tableCaption.ReplaceAllString(text, "")
}

// removeFootnoteMarkers strips [n] and (n) footnote references.
func (c *Cleaner) removeFootnoteMarkers(text string) string {
	text = c.bracketNote.ReplaceAllString(text, "")

	return c.parenNote.ReplaceAllString(text, "")
}

// spellNumbers converts standalone integers into words so the narration
// never spells out digits. Numbers past the spelling bound keep their digits.
func (c *Cleaner) spellNumbers(text string) string {
	return c.bareInteger.ReplaceAllStringFunc(text, func(match string) string {
		value, err := strconv.Atoi(match)
		if err != nil {
			return match
		}

		if spelled := SpellInteger(value); spelled != "" {
			return spelled
		}

		return match
	})
}

// normalizeWhitespace collapses runs of blank lines to paragraph breaks and
// runs of spaces to single spaces, preserving line structure for the parser.
func (c *Cleaner) normalizeWhitespace(text string) string {
	text = c.multiBlankLine.ReplaceAllString(text, "\n\n")

	return c.spaceRun.ReplaceAllString(text, " ")
}

// ensureSentenceEnding appends a period when the text does not already end
// with terminal punctuation, so narration does not trail off mid-phrase.
func ensureSentenceEnding(text string) string {
	if text == "" {
		return text
	}

	lastRune, _ := utf8.DecodeLastRuneInString(text)

	switch lastRune {
	case '.', '!', '?':
		return text
	default:
		if unicode.IsPunct(lastRune) {
			return text
		}

		return text + "."
	}
}
