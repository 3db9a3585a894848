package match

import "strings"

// WildcardPattern is a compiled '*' wildcard matcher for field names.
type WildcardPattern struct {
	parts    []string
	exact    bool
	matchAll bool
}

// CompileWildcard compiles pattern into reusable wildcard matcher.
// Params: pattern may contain '*' wildcards.
// Returns: compiled matcher and false when pattern is empty.
func CompileWildcard(pattern string) (WildcardPattern, bool) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return WildcardPattern{}, false
	}
	if strings.Trim(p, "*") == "" {
		return WildcardPattern{matchAll: true}, true
	}
	if !strings.Contains(p, "*") {
		return WildcardPattern{parts: []string{p}, exact: true}, true
	}
	return WildcardPattern{parts: strings.Split(p, "*")}, true
}

// CompileAll compiles a pattern list, skipping blank entries.
// Params: patterns wildcard strings.
// Returns: compiled patterns.
func CompileAll(patterns []string) []WildcardPattern {
	out := make([]WildcardPattern, 0, len(patterns))
	for _, pattern := range patterns {
		if compiled, ok := CompileWildcard(pattern); ok {
			out = append(out, compiled)
		}
	}
	return out
}

// Match evaluates compiled wildcard pattern against value.
// Params: value is compared text.
// Returns: true on pattern match.
func (p WildcardPattern) Match(value string) bool {
	switch {
	case p.matchAll:
		return true
	case p.exact:
		return value == p.parts[0]
	case len(p.parts) == 0:
		return false
	}

	first := p.parts[0]
	last := p.parts[len(p.parts)-1]
	if !strings.HasPrefix(value, first) {
		return false
	}
	cursor := len(first)
	end := len(value) - len(last)
	if end < cursor || !strings.HasSuffix(value, last) {
		return false
	}

	for _, segment := range p.parts[1 : len(p.parts)-1] {
		if segment == "" {
			continue
		}
		offset := strings.Index(value[cursor:end], segment)
		if offset < 0 {
			return false
		}
		cursor += offset + len(segment)
	}
	return true
}

// AnyMatch reports whether value matches at least one pattern.
// Params: patterns compiled matchers; value compared text.
// Returns: true on first match.
func AnyMatch(patterns []WildcardPattern, value string) bool {
	for _, pattern := range patterns {
		if pattern.Match(value) {
			return true
		}
	}
	return false
}
