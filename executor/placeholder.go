package executor

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountPlaceholders returns the number of positional parameters query
// expects. Both '?' and numbered '$N' placeholders are recognised; for
// numbered ones the highest N counts. Quoted strings, quoted identifiers,
// comments and PostgreSQL dollar-quoted blocks are skipped.
func CountPlaceholders(query string) (int, error) {
	question, highest := 0, 0
	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'', '"', '`':
			j, err := skipQuoted(query, i+w, byte(r))
			if err != nil {
				return 0, err
			}
			i = j
			continue
		case '-':
			if strings.HasPrefix(query[i:], "--") {
				i = skipLineComment(query, i+2)
				continue
			}
		case '/':
			if strings.HasPrefix(query[i:], "/*") {
				j, err := skipBlockComment(query, i+2)
				if err != nil {
					return 0, err
				}
				i = j
				continue
			}
		case '$':
			if n, j, ok := parseNumbered(query, i); ok {
				if n > highest {
					highest = n
				}
				i = j
				continue
			}
			if j, ok, err := skipDollarQuoted(query, i); ok {
				if err != nil {
					return 0, err
				}
				i = j
				continue
			}
		case '?':
			question++
		}
		i += w
	}
	if question > 0 && highest > 0 {
		return 0, fmt.Errorf("executor: query mixes '?' and '$N' placeholders")
	}
	return question + highest, nil
}

func skipQuoted(s string, i int, quote byte) (int, error) {
	for i < len(s) {
		c := s[i]
		i++
		if c == quote {
			if i < len(s) && s[i] == quote {
				i++
				continue
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("executor: unterminated %c-quoted text", quote)
}

func skipLineComment(s string, i int) int {
	for i < len(s) {
		if s[i] == '\n' {
			return i + 1
		}
		i++
	}
	return i
}

func skipBlockComment(s string, i int) (int, error) {
	for i < len(s)-1 {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2, nil
		}
		i++
	}
	return 0, fmt.Errorf("executor: unterminated block comment")
}

// parseNumbered reads "$N" at s[i].
func parseNumbered(s string, i int) (n, end int, ok bool) {
	j := i + 1
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		n = n*10 + int(s[j]-'0')
		j++
	}
	if j == i+1 || (j < len(s) && s[j] == '$') {
		return 0, 0, false
	}
	return n, j, true
}

// skipDollarQuoted handles $$...$$ and $tag$...$tag$.
func skipDollarQuoted(s string, i int) (int, bool, error) {
	j := i + 1
	for j < len(s) && s[j] != '$' && isTagChar(rune(s[j])) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false, nil
	}
	tag := s[i : j+1]
	idx := strings.Index(s[j+1:], tag)
	if idx < 0 {
		return 0, true, fmt.Errorf("executor: unterminated dollar-quoted text")
	}
	return j + 1 + idx + len(tag), true, nil
}

func isTagChar(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
