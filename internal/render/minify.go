package render

import "strings"

// minifyState tracks where the scanner is relative to HTML tags.
type minifyState int

const (
	stateNone minifyState = iota
	stateInside
	stateBetween
)

// Minify is a three-state scanner over characters: '<' opens a tag
// (flushing any pending non-whitespace text first), '>' closes it and
// returns to collecting between-tags text, where whitespace-only runs
// are dropped. Text inside tags passes through verbatim.
//
// Script bodies get no special treatment here; the rewrite pipeline is
// responsible for not corrupting script contents it does not
// understand. Known fragility: a whitespace-sensitive inline script
// can be altered.
func Minify(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	var text strings.Builder
	state := stateNone

	flush := func() {
		if strings.TrimSpace(text.String()) != "" {
			out.WriteString(text.String())
		}
		text.Reset()
	}

	for _, r := range content {
		switch state {
		case stateNone, stateBetween:
			if r == '<' {
				flush()
				out.WriteRune(r)
				state = stateInside
			} else {
				text.WriteRune(r)
			}
		case stateInside:
			out.WriteRune(r)
			if r == '>' {
				state = stateBetween
			}
		}
	}
	flush()

	return out.String()
}
