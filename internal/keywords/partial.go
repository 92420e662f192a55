package keywords

import (
	"strings"
	"unicode"
)

// Basis selects which part of a title takes part in matching.
type Basis string

const (
	BasisNone   Basis = "none"
	BasisFirst  Basis = "first"
	BasisLast   Basis = "last"
	BasisBefore Basis = "before"
	BasisAfter  Basis = "after"
)

// PartialTitle restricts title matching to a window of the title.
type PartialTitle struct {
	Basis     Basis
	Words     int
	SplitChar string
}

// Apply returns the window of title selected by p, trimmed.
func (p PartialTitle) Apply(title string) string {
	switch p.Basis {
	case BasisFirst, BasisLast:
		if p.Words <= 0 {
			return strings.TrimSpace(title)
		}
		words := strings.FieldsFunc(title, unicode.IsSpace)
		if len(words) > p.Words {
			if p.Basis == BasisFirst {
				words = words[:p.Words]
			} else {
				words = words[len(words)-p.Words:]
			}
		}
		return strings.TrimSpace(strings.Join(words, " "))
	case BasisBefore, BasisAfter:
		if p.SplitChar == "" || !strings.Contains(title, p.SplitChar) {
			return strings.TrimSpace(title)
		}
		parts := strings.Split(title, p.SplitChar)
		if p.Basis == BasisBefore {
			return strings.TrimSpace(parts[0])
		}
		return strings.TrimSpace(parts[len(parts)-1])
	default:
		return title
	}
}

// Enabled reports whether p changes titles at all.
func (p PartialTitle) Enabled() bool {
	return p.Basis != "" && p.Basis != BasisNone
}
