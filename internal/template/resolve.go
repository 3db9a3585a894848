// Package template renders %{field} placeholders against event fields.
//
// Two placeholder kinds are recognized:
//
//	%{name}      value of field "name" (or a nested [a][b] reference); missing fields render as ""
//	%{+layout}   current time formatted with a strftime layout; %{+%s} is epoch seconds
//
// Text outside placeholders is copied unchanged. Resolution never fails.
package template

import (
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

const (
	placeholderOpen  = "%{"
	placeholderClose = '}'
	timePrefix       = "+"
)

// FieldSource looks up event fields by name.
// Params: name field reference.
// Returns: rendered value and false when the field is absent.
type FieldSource interface {
	Field(name string) (string, bool)
}

// Resolve substitutes placeholders using the current wall-clock time.
// Params: tmpl template text; source field lookup (nil resolves every field to "").
// Returns: resolved text.
func Resolve(tmpl string, source FieldSource) string {
	return ResolveAt(tmpl, source, time.Now())
}

// ResolveAt substitutes placeholders using a fixed time for %{+layout}.
// Params: tmpl template text; source field lookup; now time used for time placeholders.
// Returns: resolved text.
func ResolveAt(tmpl string, source FieldSource, now time.Time) string {
	if !strings.Contains(tmpl, placeholderOpen) {
		return tmpl
	}

	var builder strings.Builder
	builder.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, placeholderOpen)
		if start < 0 {
			builder.WriteString(rest)
			break
		}

		keyStart := start + len(placeholderOpen)
		end := strings.IndexByte(rest[keyStart:], placeholderClose)
		if end < 0 {
			builder.WriteString(rest)
			break
		}
		if end == 0 {
			// "%{}" is kept literally.
			builder.WriteString(rest[:keyStart+1])
			rest = rest[keyStart+1:]
			continue
		}

		key := rest[keyStart : keyStart+end]
		builder.WriteString(rest[:start])
		builder.WriteString(resolveKey(key, source, now))
		rest = rest[keyStart+end+1:]
	}

	return builder.String()
}

// resolveKey renders one placeholder body.
// Params: key placeholder body; source field lookup; now reference time.
// Returns: replacement text.
func resolveKey(key string, source FieldSource, now time.Time) string {
	if layout, ok := strings.CutPrefix(key, timePrefix); ok {
		return strftime.Format(layout, now.UTC())
	}
	if source == nil {
		return ""
	}
	value, _ := source.Field(key)
	return value
}
