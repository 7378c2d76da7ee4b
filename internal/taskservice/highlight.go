package taskservice

import (
	"html"
	"strings"
	"unicode"

	"github.com/starford/tasknote/internal/models"
)

const (
	markOpen      = "<mark>"
	markClose     = "</mark>"
	snippetRadius = 30
	ellipsis      = "..."
)

// highlight builds the marked-up title and note fragments for a search hit.
// Everything outside the marks is HTML-escaped. It returns nil when nothing
// in the task matches.
func highlight(t models.Task, query string) *models.Highlights {
	q := []rune(query)
	var h models.Highlights
	if spans := matches([]rune(t.Title), q); len(spans) > 0 {
		h.Title = []string{mark([]rune(t.Title), spans, 0, len([]rune(t.Title)))}
	}
	for _, n := range t.Notes {
		text := []rune(n.Content)
		spans := matches(text, q)
		if len(spans) == 0 {
			continue
		}
		from := max(spans[0][0]-snippetRadius, 0)
		to := min(spans[0][1]+snippetRadius, len(text))
		frag := mark(text, spans, from, to)
		if from > 0 {
			frag = ellipsis + frag
		}
		if to < len(text) {
			frag += ellipsis
		}
		h.Content = append(h.Content, frag)
	}
	if h.Title == nil && h.Content == nil {
		return nil
	}
	return &h
}

// matches returns the non-overlapping [start, end) rune spans where q occurs
// in text, ignoring case.
func matches(text, q []rune) [][2]int {
	if len(q) == 0 {
		return nil
	}
	var out [][2]int
	for i := 0; i+len(q) <= len(text); {
		if equalFold(text[i:i+len(q)], q) {
			out = append(out, [2]int{i, i + len(q)})
			i += len(q)
			continue
		}
		i++
	}
	return out
}

func equalFold(a, b []rune) bool {
	for i := range a {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// mark renders text[from:to] with every span inside it wrapped in <mark>.
func mark(text []rune, spans [][2]int, from, to int) string {
	var b strings.Builder
	pos := from
	for _, sp := range spans {
		if sp[0] < from || sp[1] > to {
			continue
		}
		b.WriteString(html.EscapeString(string(text[pos:sp[0]])))
		b.WriteString(markOpen)
		b.WriteString(html.EscapeString(string(text[sp[0]:sp[1]])))
		b.WriteString(markClose)
		pos = sp[1]
	}
	b.WriteString(html.EscapeString(string(text[pos:to])))
	return b.String()
}
