package event

import (
	"errors"
	"strings"
	"testing"
)

// TestDecode_ExtractsTypeTagsAndFields verifies reserved keys and field rendering.
// Params: testing.T for assertions.
// Returns: none.
func TestDecode_ExtractsTypeTagsAndFields(t *testing.T) {
	decoded, err := Decode([]byte(`{"type":"apache","tags":["prod","web"],"host":"a","uptime":42.5,"count":7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Type != "apache" {
		t.Fatalf("unexpected type: %q", decoded.Type)
	}
	if !decoded.HasTag("prod") || !decoded.HasTag("web") || decoded.HasTag("db") {
		t.Fatalf("unexpected tags: %v", decoded.Tags)
	}
	if got, ok := decoded.Field("uptime"); !ok || got != "42.5" {
		t.Fatalf("unexpected uptime: %q ok=%v", got, ok)
	}
	if got, ok := decoded.Field("count"); !ok || got != "7" {
		t.Fatalf("unexpected count: %q ok=%v", got, ok)
	}
	if _, ok := decoded.Field("missing"); ok {
		t.Fatalf("expected missing field lookup to fail")
	}
}

// TestDecode_LegacySchema verifies @type/@tags aliases and @fields flattening.
// Params: testing.T for assertions.
// Returns: none.
func TestDecode_LegacySchema(t *testing.T) {
	decoded, err := Decode([]byte(`{"@type":"stats","@tags":"prod","@source_host":"h1","@fields":{"uptime_1m":["3"],"@source_host":"other"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Type != "stats" {
		t.Fatalf("unexpected type: %q", decoded.Type)
	}
	if len(decoded.Tags) != 1 || decoded.Tags[0] != "prod" {
		t.Fatalf("unexpected tags: %v", decoded.Tags)
	}
	if got, _ := decoded.Field("uptime_1m"); got != "3" {
		t.Fatalf("unexpected flattened field: %q", got)
	}
	if got, _ := decoded.Field("@source_host"); got != "h1" {
		t.Fatalf("top-level field must win over @fields, got %q", got)
	}
}

// TestDecode_KeepsTypeVerbatim verifies the event type is not trimmed or normalized.
// Params: testing.T for assertions.
// Returns: none.
func TestDecode_KeepsTypeVerbatim(t *testing.T) {
	decoded, err := Decode([]byte(`{"type":" apache ","host":"a"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != " apache " {
		t.Fatalf("type must be kept verbatim, got %q", decoded.Type)
	}
}

// TestDecode_RejectsInvalidShapes verifies contract errors.
// Params: testing.T for assertions.
// Returns: none.
func TestDecode_RejectsInvalidShapes(t *testing.T) {
	cases := []string{
		`[]`,
		`"text"`,
		`{"type":1}`,
		`{"tags":[1]}`,
		`{"tags":{"a":"b"}}`,
		`{"a":1} {"b":2}`,
	}
	for _, raw := range cases {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

// TestEvent_NestedFieldReference verifies [a][b] lookups.
// Params: testing.T for assertions.
// Returns: none.
func TestEvent_NestedFieldReference(t *testing.T) {
	decoded, err := Decode([]byte(`{"stats":{"cpu":{"user":12.25}},"flat":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got, ok := decoded.Field("[stats][cpu][user]"); !ok || got != "12.25" {
		t.Fatalf("unexpected nested value: %q ok=%v", got, ok)
	}
	if got, ok := decoded.Field("[flat]"); !ok || got != "x" {
		t.Fatalf("unexpected single segment value: %q ok=%v", got, ok)
	}
	if _, ok := decoded.Field("[stats][mem]"); ok {
		t.Fatalf("expected missing nested field")
	}
	if _, ok := decoded.Field("[flat][deeper]"); ok {
		t.Fatalf("expected lookup through scalar to fail")
	}
	if got, _ := decoded.Field("[stats][cpu]"); got != `{"user":12.25}` {
		t.Fatalf("unexpected object rendering: %q", got)
	}
}

// TestDecodeStream_Shapes verifies object, array, and NDJSON payloads.
// Params: testing.T for assertions.
// Returns: none.
func TestDecodeStream_Shapes(t *testing.T) {
	testCases := []struct {
		payload string
		want    int
	}{
		{payload: `{"type":"a"}`, want: 1},
		{payload: `[{"type":"a"},{"type":"b"}]`, want: 2},
		{payload: "{\"type\":\"a\"}\n{\"type\":\"b\"}\n{\"type\":\"c\"}\n", want: 3},
	}

	for _, testCase := range testCases {
		got := 0
		err := DecodeStream(strings.NewReader(testCase.payload), 0, func(Event) error {
			got++
			return nil
		})
		if err != nil {
			t.Fatalf("decode stream %q: %v", testCase.payload, err)
		}
		if got != testCase.want {
			t.Fatalf("payload %q: events=%d, want=%d", testCase.payload, got, testCase.want)
		}
	}
}

// TestDecodeStream_LimitAndCallbackError verifies size limit and callback error propagation.
// Params: testing.T for assertions.
// Returns: none.
func TestDecodeStream_LimitAndCallbackError(t *testing.T) {
	err := DecodeStream(strings.NewReader(`{"type":"aaaaaaaaaa"}`), 8, func(Event) error { return nil })
	if !errors.Is(err, ErrPayloadTooLarge) || !strings.Contains(err.Error(), "exceeds 8 bytes") {
		t.Fatalf("expected size error, got %v", err)
	}

	stop := errors.New("stop")
	err = DecodeStream(strings.NewReader(`[{"type":"a"},{"type":"b"}]`), 0, func(Event) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}

	err = DecodeStream(strings.NewReader(`[{"type":"a"},3]`), 0, func(Event) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "items[1]") {
		t.Fatalf("expected indexed item error, got %v", err)
	}
}
