package executor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nlimpid/ironsql/dberr"
)

// Named rewrites the :name placeholders of query to '?' and returns the
// values of params in placeholder order. A name may appear more than once.
// Quoted text, comments, dollar-quoted blocks and "::" casts are left as they
// are. A name missing from params is an UnboundParameterError; a present key
// holding nil binds NULL.
func Named(query string, params map[string]any) (string, []any, error) {
	var (
		b    strings.Builder
		args []any
		last int
	)
	b.Grow(len(query))
	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'', '"', '`':
			j, err := skipQuoted(query, i+w, byte(r))
			if err != nil {
				return "", nil, err
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
					return "", nil, err
				}
				i = j
				continue
			}
		case '$':
			if j, ok, err := skipDollarQuoted(query, i); err != nil {
				return "", nil, err
			} else if ok {
				i = j
				continue
			}
		case ':':
			if strings.HasPrefix(query[i:], "::") {
				i += 2
				continue
			}
			name, end := parseName(query, i+1)
			if name == "" {
				break
			}
			v, ok := params[name]
			if !ok {
				return "", nil, &dberr.UnboundParameterError{Query: query, Name: name}
			}
			b.WriteString(query[last:i])
			b.WriteByte('?')
			args = append(args, v)
			last, i = end, end
			continue
		}
		i += w
	}
	if args == nil {
		return query, nil, nil
	}
	b.WriteString(query[last:])
	return b.String(), args, nil
}

// parseName reads an identifier at s[i]. Names never start with a digit, so
// "[1:2]" slices pass through.
func parseName(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r != '_' && !unicode.IsLetter(r) && (i == start || !unicode.IsDigit(r)) {
			break
		}
		i += w
	}
	return s[start:i], i
}
