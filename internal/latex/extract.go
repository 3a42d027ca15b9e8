// Package latex holds the text-level domain logic: building prompts,
// pulling LaTeX source out of raw model output, recognizing edits that need
// no model at all, and caching finished documents.
package latex

import (
	"regexp"
	"strings"
)

const (
	documentClass = `\documentclass`
	endDocument   = `\end{document}`
)

var (
	latexFenceRe = regexp.MustCompile("(?s)```latex\\b\\s*(.*?)```")
	anyFenceRe   = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// Extract pulls the best-effort LaTeX substring out of raw model output.
// Models wrap their answer inconsistently, so extraction walks a fixed
// cascade of decreasing confidence, each rule a strict fallback from the
// previous:
//
//  1. a fenced block tagged latex
//  2. any fenced block
//  3. the span from \documentclass through \end{document}
//  4. everything from \documentclass to the end of the text
//  5. the whole text as-is
//
// The result is always trimmed of surrounding whitespace.
func Extract(text string) string {
	if m := latexFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.Index(text, documentClass)
	if start >= 0 {
		if end := strings.Index(text[start:], endDocument); end >= 0 {
			return strings.TrimSpace(text[start : start+end+len(endDocument)])
		}
		return strings.TrimSpace(text[start:])
	}

	return strings.TrimSpace(text)
}
