package reports

import (
	"strings"
	"unicode/utf8"
)

// WrapText reflows s into lines of at most width characters joined by "\n".
// Runs of whitespace, including existing newlines, collapse to one space.
// Lines break between words; a word longer than width is split across lines.
func WrapText(s string, width int) string {
	if width <= 0 {
		return s
	}

	var (
		lines  []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(s) {
		rest := word
		for rest != "" {
			n := utf8.RuneCountInString(rest)
			sep := 0
			if curLen > 0 {
				sep = 1
			}

			if curLen+sep+n <= width {
				if sep == 1 {
					cur.WriteByte(' ')
				}
				cur.WriteString(rest)
				curLen += sep + n
				break
			}

			if n <= width {
				flush()
				continue
			}

			room := width - curLen - sep
			if room <= 0 {
				flush()
				continue
			}
			head, tail := splitRunes(rest, room)
			if sep == 1 {
				cur.WriteByte(' ')
			}
			cur.WriteString(head)
			curLen += sep + room
			rest = tail
			flush()
		}
	}
	flush()

	return strings.Join(lines, "\n")
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
