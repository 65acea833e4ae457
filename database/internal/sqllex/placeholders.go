package sqllex

import "strings"

// Placeholder is one occurrence of a named parameter (":name") in SQL text.
type Placeholder struct {
	Name  string
	Start int // byte offset of the colon
	End   int // byte offset just past the name
}

// ScanPlaceholders returns every named placeholder in query in order of appearance.
// Text inside single-quoted strings, double-quoted or backtick-quoted identifiers and
// comments is skipped, and PostgreSQL "::type" casts are not placeholders.
func ScanPlaceholders(query string) []Placeholder {
	var out []Placeholder
	n := len(query)

	for i := 0; i < n; i++ {
		c := query[i]
		switch c {
		case '\'', '"', '`':
			i = skipQuoted(query, i, c)
		case '-':
			if i+1 < n && query[i+1] == '-' {
				i = skipLine(query, i)
			}
		case '/':
			if i+1 < n && query[i+1] == '*' {
				i = skipBlock(query, i)
			}
		case ':':
			if i+1 < n && query[i+1] == ':' {
				i++
				continue
			}
			if i > 0 && query[i-1] == ':' {
				continue
			}
			j := i + 1
			for j < n && isNameByte(query[j], j == i+1) {
				j++
			}
			if j > i+1 {
				out = append(out, Placeholder{Name: query[i+1 : j], Start: i, End: j})
				i = j - 1
			}
		}
	}

	return out
}

// Names returns the placeholder names in order of appearance, duplicates included.
func Names(query string) []string {
	phs := ScanPlaceholders(query)
	names := make([]string, len(phs))
	for i, ph := range phs {
		names[i] = ph.Name
	}
	return names
}

// ReplacePlaceholders rewrites each named placeholder with the string returned by fn.
func ReplacePlaceholders(query string, fn func(name string) string) string {
	phs := ScanPlaceholders(query)
	if len(phs) == 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	last := 0
	for _, ph := range phs {
		b.WriteString(query[last:ph.Start])
		b.WriteString(fn(ph.Name))
		last = ph.End
	}
	b.WriteString(query[last:])
	return b.String()
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// skipQuoted returns the index of the closing quote; doubled quotes are escapes.
func skipQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] == '\\' && quote == '\'' {
			i++
			continue
		}
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(s)
}

func skipLine(s string, start int) int {
	if idx := strings.IndexByte(s[start:], '\n'); idx >= 0 {
		return start + idx
	}
	return len(s)
}

func skipBlock(s string, start int) int {
	if idx := strings.Index(s[start+2:], "*/"); idx >= 0 {
		return start + 2 + idx + 1
	}
	return len(s)
}

// ReplacePositional rewrites each "?" outside quotes and comments with fn(i), where i
// counts from zero. It returns the rewritten text and the number of markers replaced.
func ReplacePositional(query string, fn func(i int) string) (string, int) {
	var b strings.Builder
	b.Grow(len(query) + 8)
	count := 0
	last := 0
	n := len(query)

	for i := 0; i < n; i++ {
		switch c := query[i]; c {
		case '\'', '"', '`':
			i = skipQuoted(query, i, c)
		case '-':
			if i+1 < n && query[i+1] == '-' {
				i = skipLine(query, i)
			}
		case '/':
			if i+1 < n && query[i+1] == '*' {
				i = skipBlock(query, i)
			}
		case '?':
			b.WriteString(query[last:i])
			b.WriteString(fn(count))
			count++
			last = i + 1
		}
	}
	if count == 0 {
		return query, 0
	}
	b.WriteString(query[last:])
	return b.String(), count
}
