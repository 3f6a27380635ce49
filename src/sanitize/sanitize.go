// Package sanitize cleans text that came from a remote tracker before it is
// handed to a terminal or an MCP client. Issue titles and comments are
// user-controlled and may carry escape sequences or embedded newlines.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"

	"worklink/src/contracts"
)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Line reduces s to a single printable line: escape sequences are removed,
// control characters become spaces and runs of whitespace collapse.
func Line(s string) string {
	s = StripANSI(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Link returns a copy of l with its ID and description reduced to single lines.
func Link(l contracts.WorkItemLink) contracts.WorkItemLink {
	l.ID = Line(l.ID)
	l.Description = Line(l.Description)
	return l
}

// Links sanitizes every link and drops any that become identical to an
// earlier one once cleaned. A nil slice stays nil.
func Links(links []contracts.WorkItemLink) []contracts.WorkItemLink {
	if links == nil {
		return nil
	}
	seen := make(map[contracts.WorkItemLink]struct{}, len(links))
	out := make([]contracts.WorkItemLink, 0, len(links))
	for _, l := range links {
		l = Link(l)
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
