// Package naming translates model field identifiers into SQL column names.
//
// A Strategy is a pure, deterministic function. Every built-in strategy is
// idempotent: resolving an already-resolved name returns it unchanged.
//
//	naming.SnakeCase.Resolve("ActiveStatus") // "active_status"
//	naming.SnakeCase.Resolve("UserID")       // "user_id"
//	naming.Identity.Resolve("ActiveStatus")  // "ActiveStatus"
package naming

import (
	"fmt"
	"strings"
	"unicode"
)

// Strategy selects how field names become column names. The zero value is
// Identity.
type Strategy uint8

const (
	// Identity leaves names unchanged.
	Identity Strategy = iota
	// SnakeCase lower-cases and joins words with '_'.
	SnakeCase
	// CamelCase lower-cases the first character only.
	CamelCase
	// KebabCase lower-cases and joins words with '-'.
	KebabCase
	// UpperSnakeCase upper-cases and joins words with '_'.
	UpperSnakeCase
)

var names = map[Strategy]string{
	Identity:       "identity",
	SnakeCase:      "snake_case",
	CamelCase:      "camel_case",
	KebabCase:      "kebab_case",
	UpperSnakeCase: "upper_snake_case",
}

// String returns the configuration name of s.
func (s Strategy) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("naming.Strategy(%d)", uint8(s))
}

// Parse maps a configuration value onto a Strategy. It accepts the names
// returned by String plus a few common spellings ("snake", "snakeCase",
// "kebab-case", "none").
func Parse(s string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "", "identity", "none":
		return Identity, nil
	case "snake", "snakecase":
		return SnakeCase, nil
	case "camel", "camelcase":
		return CamelCase, nil
	case "kebab", "kebabcase":
		return KebabCase, nil
	case "uppersnake", "uppersnakecase", "screamingsnakecase":
		return UpperSnakeCase, nil
	}
	return Identity, fmt.Errorf("naming: unknown strategy %q", s)
}

// Resolve returns the column name for the field name.
func (s Strategy) Resolve(name string) string {
	switch s {
	case SnakeCase:
		return split(name, '_', unicode.ToLower)
	case KebabCase:
		return split(name, '-', unicode.ToLower)
	case UpperSnakeCase:
		return split(name, '_', unicode.ToUpper)
	case CamelCase:
		return lowerFirst(name)
	default:
		return name
	}
}

// split breaks name on case boundaries and joins the words with sep. An upper
// case rune starts a new word when it follows a lower case rune, or when it
// ends an acronym ("HTTPServer" -> "http", "server"). Digits continue the
// word they follow and leave the boundary state unchanged, so "a1B" splits
// after the digit while "A1B" does not. Existing separators ('_', '-', ' ')
// are normalised to sep.
func split(name string, sep rune, caseFn func(rune) rune) string {
	if name == "" {
		return ""
	}
	runes := []rune(name)

	var b strings.Builder
	b.Grow(len(name) + 4)

	prevLower := false
	pendingSep := false
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			if b.Len() > 0 {
				pendingSep = true
			}
			prevLower = false
			continue
		}
		if unicode.IsUpper(r) {
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if b.Len() > 0 && (prevLower || nextLower) {
				pendingSep = true
			}
			prevLower = false
		} else if !unicode.IsDigit(r) {
			prevLower = unicode.IsLower(r)
		}
		if pendingSep {
			b.WriteRune(sep)
			pendingSep = false
		}
		b.WriteRune(caseFn(r))
	}
	return b.String()
}

func lowerFirst(name string) string {
	for i, r := range name {
		if unicode.IsLower(r) || !unicode.IsLetter(r) {
			return name
		}
		return string(unicode.ToLower(r)) + name[i+len(string(r)):]
	}
	return name
}
