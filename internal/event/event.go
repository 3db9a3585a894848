package event

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Event is one structured log event handed from inputs to sinks.
// Params: event type, tag set, and raw field map.
// Returns: immutable event payload for the duration of processing.
type Event struct {
	Type   string         `json:"type"`
	Tags   []string       `json:"tags"`
	Fields map[string]any `json:"fields"`
}

// HasTag reports whether tag is present on the event.
// Params: tag exact tag value.
// Returns: true when event carries the tag.
func (e Event) HasTag(tag string) bool {
	for _, candidate := range e.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Field returns the string form of one event field.
// Params: name plain field name or nested reference in [a][b] form.
// Returns: rendered value and false when the field does not exist.
func (e Event) Field(name string) (string, bool) {
	raw, ok := e.lookup(name)
	if !ok {
		return "", false
	}
	return stringify(raw), true
}

// lookup resolves a plain or nested field reference.
// Params: name plain key or [a][b] path.
// Returns: raw field value and presence flag.
func (e Event) lookup(name string) (any, bool) {
	if e.Fields == nil {
		return nil, false
	}
	if value, ok := e.Fields[name]; ok {
		return value, true
	}

	path, ok := splitFieldPath(name)
	if !ok {
		return nil, false
	}

	var current any = e.Fields
	for _, segment := range path {
		node, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		next, exists := node[segment]
		if !exists {
			return nil, false
		}
		current = next
	}
	return current, true
}

// splitFieldPath parses [a][b][c] references.
// Params: reference raw field reference.
// Returns: path segments and false when reference is not bracketed.
func splitFieldPath(reference string) ([]string, bool) {
	if !strings.HasPrefix(reference, "[") || !strings.HasSuffix(reference, "]") {
		return nil, false
	}

	inner := reference[1 : len(reference)-1]
	segments := strings.Split(inner, "][")
	for _, segment := range segments {
		if segment == "" || strings.ContainsAny(segment, "[]") {
			return nil, false
		}
	}
	return segments, true
}

// stringify renders a decoded JSON value as template text.
// Params: value decoded field value.
// Returns: text form (empty for null).
func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case uint32:
		return strconv.FormatUint(uint64(typed), 10)
	case []string:
		return strings.Join(typed, ",")
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
