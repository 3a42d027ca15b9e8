package latex

import (
	"regexp"
	"strings"
)

const maketitle = `\maketitle`

var (
	dateWordRe    = regexp.MustCompile(`(?i)\bdate\b`)
	dateRemovalRe = regexp.MustCompile(`(?i)\b(remove|delete|omit|hide|no|without)\b[^.!?]*\bdate\b|\bdate\b[^.!?]*\b(remove|removed|delete|deleted|omit|omitted|hide|hidden)\b`)
)

// IsDateRemovalRequest reports whether notes ask for nothing beyond dropping
// the date. The word caps keep longer instructions on the model path even
// when they happen to mention the date.
func IsDateRemovalRequest(notes string, omit bool) bool {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return false
	}

	words := len(strings.Fields(trimmed))
	if omit {
		return words <= 6 && dateWordRe.MatchString(trimmed)
	}
	return words <= 10 && dateRemovalRe.MatchString(trimmed)
}

// HasImplicitTitleDate reports whether the document lets \maketitle print
// today's date because no \date command overrides it.
func HasImplicitTitleDate(src string) bool {
	return strings.Contains(src, maketitle) && !strings.Contains(src, `\date`)
}

// SuppressTitleDate inserts an empty \date{} before the first \maketitle,
// which stops LaTeX from printing the current date in the title block. The
// source is returned unchanged when it has no \maketitle.
func SuppressTitleDate(src string) string {
	idx := strings.Index(src, maketitle)
	if idx < 0 {
		return src
	}
	return src[:idx] + "\\date{}\n" + src[idx:]
}
