package graphite

import (
	"math"
	"strconv"
	"strings"
	"time"

	"graphout/internal/template"
)

const timestampTemplate = "%{+%s}"

// MetricSpec is one configured name-template/value-template pair.
// Params: Name resolves to the metric path; Value resolves to the numeric sample.
// Returns: immutable spec applied to every qualifying event.
type MetricSpec struct {
	Name  string
	Value string
}

// FormatLine renders one plaintext-protocol line for spec and event.
// Params: spec templates; source event fields.
// Returns: "name value timestamp\n".
func FormatLine(spec MetricSpec, source template.FieldSource) string {
	return formatLineAt(spec, source, time.Now())
}

// formatLineAt renders one line with a fixed clock.
// Params: spec templates; source event fields; now time for placeholders and timestamp.
// Returns: newline-terminated wire line.
func formatLineAt(spec MetricSpec, source template.FieldSource, now time.Time) string {
	name := sanitizeName(template.ResolveAt(spec.Name, source, now))
	value := formatValue(template.ResolveAt(spec.Value, source, now))
	timestamp := template.ResolveAt(timestampTemplate, source, now)

	var builder strings.Builder
	builder.Grow(len(name) + len(value) + len(timestamp) + 3)
	builder.WriteString(name)
	builder.WriteByte(' ')
	builder.WriteString(value)
	builder.WriteByte(' ')
	builder.WriteString(timestamp)
	builder.WriteByte('\n')
	return builder.String()
}

// formatValue coerces resolved value text to a decimal float.
// The longest leading decimal number is used, so "42.5ms" renders as "42.5".
// Params: raw resolved value template.
// Returns: decimal text; input without a numeric prefix and non-finite values render as "0.0".
func formatValue(raw string) string {
	parsed, err := strconv.ParseFloat(numericPrefix(strings.TrimSpace(raw)), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		parsed = 0
	}

	text := strconv.FormatFloat(parsed, 'f', -1, 64)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}

// numericPrefix extracts the leading [sign] digits [. digits] [e [sign] digits] run of text.
// Single underscores between digits are accepted and removed.
// Params: text trimmed value.
// Returns: prefix ready for strconv.ParseFloat, or "" when text does not start with a number.
func numericPrefix(text string) string {
	idx := 0
	if idx < len(text) && (text[idx] == '+' || text[idx] == '-') {
		idx++
	}

	end := scanDigits(text, idx)
	mantissa := end > idx
	if end+1 < len(text) && text[end] == '.' && isDigit(text[end+1]) {
		end = scanDigits(text, end+1)
		mantissa = true
	}
	if !mantissa {
		return ""
	}

	if end < len(text) && (text[end] == 'e' || text[end] == 'E') {
		exp := end + 1
		if exp < len(text) && (text[exp] == '+' || text[exp] == '-') {
			exp++
		}
		if expEnd := scanDigits(text, exp); expEnd > exp {
			end = expEnd
		}
	}

	return strings.ReplaceAll(text[:end], "_", "")
}

// scanDigits advances over a digit run starting at idx.
// Params: text source; idx start offset.
// Returns: offset after the run; idx when no digit starts there.
func scanDigits(text string, idx int) int {
	if idx >= len(text) || !isDigit(text[idx]) {
		return idx
	}
	end := idx + 1
	for end < len(text) {
		switch {
		case isDigit(text[end]):
			end++
		case text[end] == '_' && end+1 < len(text) && isDigit(text[end+1]):
			end += 2
		default:
			return end
		}
	}
	return end
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// sanitizeName replaces protocol delimiters inside a metric path.
// Params: name resolved metric path.
// Returns: path without spaces, tabs, or line breaks.
func sanitizeName(name string) string {
	if !strings.ContainsAny(name, " \t\r\n") {
		return name
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return '_'
		default:
			return r
		}
	}, name)
}
