// Package document splits raw curriculum text into ordered chapters.
//
// The same parser is used by the narration path and the subtitle path so that
// both always see identical chapter boundaries.
package document

import (
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// Heading marker convention for the input document.
const (
	headingPrefix = "# "
	// implicitTitle is assigned to body text that precedes the first heading.
	implicitTitle = "Introduction"
)

// Parse scans the document line by line and returns the chapters in source
// order. A line starting with "# " opens a new chapter titled by the rest of
// the line. A doubled marker ("## ") or a marker without the trailing space is
// body text, not a boundary. Empty input yields an empty list.
func Parse(content string) []core.Chapter {
	var (
		chapters     []core.Chapter
		bodyBuilder  strings.Builder
		currentTitle = implicitTitle
	)

	flush := func() {
		body := strings.TrimSpace(bodyBuilder.String())
		if body == "" {
			return
		}

		chapters = append(chapters, core.Chapter{
			Title:   currentTitle,
			Body:    body,
			Ordinal: len(chapters),
		})
	}

	for _, line := range strings.Split(content, "\n") {
		if isHeading(line) {
			flush()

			currentTitle = strings.TrimSpace(line[len(headingPrefix):])
			bodyBuilder.Reset()

			continue
		}

		bodyBuilder.WriteString(line)
		bodyBuilder.WriteString("\n")
	}

	flush()

	return chapters
}

// isHeading reports whether a line matches the exact chapter marker pattern.
// A doubled marker ("##") fails the prefix match and stays body text, so
// sub-heading detection is left to callers that need it.
func isHeading(line string) bool {
	return strings.HasPrefix(line, headingPrefix)
}
