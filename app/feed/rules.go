package feed

import (
	"bytes"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"

	"github.com/goccy/go-json"

	"feedward/app/database"
)

// FilterRules is a subscriber's exclusion rule set. Each list holds patterns
// tried as case-insensitive regular expressions, falling back to substring
// matching when a pattern does not compile.
type FilterRules struct {
	ExcludeTitle   []string `json:"exclude_title,omitempty"`
	ExcludeContent []string `json:"exclude_content,omitempty"`
	ExcludeAuthor  []string `json:"exclude_author,omitempty"`
}

func (r FilterRules) IsEmpty() bool {
	return len(r.ExcludeTitle) == 0 && len(r.ExcludeContent) == 0 && len(r.ExcludeAuthor) == 0
}

// ParseRules normalizes a stored rule set into FilterRules. Legacy rows hold
// the rules doubly encoded (a JSON string containing a JSON object); both
// forms are accepted so the ambiguity never propagates past this boundary.
func ParseRules(raw []byte) (FilterRules, error) {
	var rules FilterRules

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return rules, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return rules, fmt.Errorf("failed to decode serialized filter rules: %w", err)
		}
		raw = []byte(inner)
		if len(bytes.TrimSpace(raw)) == 0 {
			return rules, nil
		}
	}

	if err := json.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("failed to decode filter rules: %w", err)
	}

	return rules, nil
}

// EncodeRules serializes a rule set for storage. Empty rule sets encode to
// nil so the column stays NULL and the subscription is skipped by the
// applier entirely.
func EncodeRules(rules FilterRules) ([]byte, error) {
	if rules.IsEmpty() {
		return nil, nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter rules: %w", err)
	}
	return data, nil
}

// Matches reports whether the entry is excluded by the rule set. Pure: no
// I/O, no state. Empty field text never matches any pattern.
func Matches(entry database.Entry, rules FilterRules) bool {
	fields := []struct {
		text     string
		patterns []string
	}{
		{entry.Title, rules.ExcludeTitle},
		{entry.Content, rules.ExcludeContent},
		{entry.Author, rules.ExcludeAuthor},
	}

	for _, field := range fields {
		if field.text == "" {
			continue
		}
		for _, pattern := range field.patterns {
			if matchesPattern(field.text, pattern) {
				return true
			}
		}
	}

	return false
}

// matchesPattern tries the pattern as a case-insensitive regular expression.
// Patterns that fail to compile degrade to a case-insensitive substring
// match instead of erroring, so a malformed stored rule still behaves.
func matchesPattern(text, pattern string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return strings.Contains(strings.ToLower(text), strings.ToLower(pattern))
	}
	return re.MatchString(text)
}

// ValidateRules is the write-time check applied when a subscriber saves a
// rule set. Patterns must compile and must not nest quantifiers (the classic
// (x+)+ shape); rule sets are shared with backtracking evaluators elsewhere,
// so the guard lives here rather than at evaluation time.
func ValidateRules(rules FilterRules) error {
	for _, patterns := range [][]string{rules.ExcludeTitle, rules.ExcludeContent, rules.ExcludeAuthor} {
		for _, pattern := range patterns {
			re, err := syntax.Parse(pattern, syntax.Perl)
			if err != nil {
				// Does not compile: evaluation falls back to substring
				// matching, which is always safe.
				continue
			}
			if hasNestedQuantifier(re, false) {
				return fmt.Errorf("pattern %q nests quantifiers", pattern)
			}
		}
	}
	return nil
}

func hasNestedQuantifier(re *syntax.Regexp, inQuantifier bool) bool {
	quantified := false
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus, syntax.OpRepeat:
		if inQuantifier {
			return true
		}
		quantified = true
	}

	for _, sub := range re.Sub {
		if hasNestedQuantifier(sub, inQuantifier || quantified) {
			return true
		}
	}

	return false
}
