package pattern

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// StringMatcher tests a whole string against a literal or a regular
// expression. Regular expressions must match the full string.
type StringMatcher struct {
	value         string
	regex         bool
	caseSensitive bool
	re            *regexp2.Regexp
	alternatives  map[string]struct{}
}

// NewStringMatcher compiles a matcher. Literal matchers compare with the
// given case sensitivity; regex matchers add IgnoreCase when insensitive.
func NewStringMatcher(value string, regex, caseSensitive bool) (*StringMatcher, error) {
	m := &StringMatcher{value: value, regex: regex, caseSensitive: caseSensitive}
	if !regex {
		if !caseSensitive {
			m.value = strings.ToLower(value)
		}
		return m, nil
	}

	// Plain alternations like "a|an|the" skip the regex engine.
	if isPlainAlternation(value) {
		m.alternatives = make(map[string]struct{})
		for _, alt := range strings.Split(value, "|") {
			if !caseSensitive {
				alt = strings.ToLower(alt)
			}
			m.alternatives[alt] = struct{}{}
		}
		return m, nil
	}

	opts := regexp2.None
	if !caseSensitive {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(`^(?:`+value+`)$`, opts)
	if err != nil {
		return nil, err
	}
	m.re = re
	return m, nil
}

// MustStringMatcher is NewStringMatcher that panics on error. Intended for
// tests and package level tables.
func MustStringMatcher(value string, regex, caseSensitive bool) *StringMatcher {
	m, err := NewStringMatcher(value, regex, caseSensitive)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether s satisfies the matcher.
func (m *StringMatcher) Match(s string) bool {
	if m == nil {
		return true
	}
	if !m.caseSensitive {
		s = strings.ToLower(s)
	}
	switch {
	case m.alternatives != nil:
		_, ok := m.alternatives[s]
		return ok
	case m.re != nil:
		ok, err := m.re.MatchString(s)
		return err == nil && ok
	default:
		return s == m.value
	}
}

// IsRegex reports whether the matcher was built from a regular expression.
func (m *StringMatcher) IsRegex() bool { return m.regex }

// String returns the source value.
func (m *StringMatcher) String() string {
	if m.regex {
		return "/" + m.value + "/"
	}
	return `"` + m.value + `"`
}

func isPlainAlternation(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if strings.ContainsRune(`\.^$*+?()[]{}`, r) {
			return false
		}
	}
	return true
}
