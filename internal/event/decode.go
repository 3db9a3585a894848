package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadBytes is the default upper bound for one decoded payload.
const MaxPayloadBytes = 16 << 20

// ErrPayloadTooLarge marks input rejected by the DecodeStream size limit.
var ErrPayloadTooLarge = errors.New("payload too large")

// Decode parses one JSON object into an event.
// Params: raw JSON object bytes.
// Returns: decoded event or contract error.
func Decode(raw []byte) (Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("event must be a JSON object")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return Event{}, fmt.Errorf("decode JSON: %w", err)
	}
	if decoder.More() {
		return Event{}, fmt.Errorf("decode JSON: trailing data after object")
	}

	return fromFields(fields)
}

// DecodeStream parses an object, an array of objects, or newline-delimited objects.
// Params: r payload source; limit max accepted bytes (<=0 uses MaxPayloadBytes); fn receives each event in order.
// Returns: first read/decode error or callback error.
func DecodeStream(r io.Reader, limit int64, fn func(Event) error) error {
	if r == nil {
		return fmt.Errorf("nil reader")
	}
	if limit <= 0 {
		limit = MaxPayloadBytes
	}

	payload, err := io.ReadAll(&io.LimitedReader{R: r, N: limit + 1})
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	if int64(len(payload)) > limit {
		return fmt.Errorf("%w: exceeds %d bytes", ErrPayloadTooLarge, limit)
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return fmt.Errorf("decode JSON: empty payload")
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
		for idx, record := range records {
			decoded, err := Decode(record)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", idx, err)
			}
			if err := fn(decoded); err != nil {
				return err
			}
		}
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	for idx := 0; ; idx++ {
		var record json.RawMessage
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("records[%d]: decode JSON: %w", idx, err)
		}
		decoded, err := Decode(record)
		if err != nil {
			return fmt.Errorf("records[%d]: %w", idx, err)
		}
		if err := fn(decoded); err != nil {
			return err
		}
	}
}

// fromFields extracts type and tags from a decoded object.
// Params: fields decoded JSON object; "type"/"@type" and "tags"/"@tags" are recognized, "@fields" is flattened.
// Returns: event or contract error.
func fromFields(fields map[string]any) (Event, error) {
	if fields == nil {
		fields = make(map[string]any)
	}

	out := Event{Fields: fields}

	eventType, err := firstString(fields, "type", "@type")
	if err != nil {
		return Event{}, err
	}
	out.Type = eventType

	tags, err := firstTags(fields, "tags", "@tags")
	if err != nil {
		return Event{}, err
	}
	out.Tags = tags

	if nested, ok := fields["@fields"].(map[string]any); ok {
		for key, value := range nested {
			if _, exists := fields[key]; exists {
				continue
			}
			fields[key] = value
		}
	}

	return out, nil
}

// firstString returns the first present string field among keys.
// Params: fields object; keys candidate names in priority order.
// Returns: value or type error.
func firstString(fields map[string]any, keys ...string) (string, error) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		value, isString := raw.(string)
		if !isString {
			return "", fmt.Errorf("%s must be string", key)
		}
		return value, nil
	}
	return "", nil
}

// firstTags returns the first present tag list among keys.
// Params: fields object; keys candidate names in priority order.
// Returns: tags (a single string becomes one tag) or type error.
func firstTags(fields map[string]any, keys ...string) ([]string, error) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		switch typed := raw.(type) {
		case string:
			return []string{typed}, nil
		case []any:
			tags := make([]string, 0, len(typed))
			for idx, item := range typed {
				tag, isString := item.(string)
				if !isString {
					return nil, fmt.Errorf("%s[%d] must be string", key, idx)
				}
				tags = append(tags, tag)
			}
			return tags, nil
		default:
			return nil, fmt.Errorf("%s must be string array", key)
		}
	}
	return nil, nil
}
