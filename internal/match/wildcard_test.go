package match

import "testing"

// TestWildcardPattern_Match verifies anchoring, middle segments and overlap handling.
// Params: testing.T for assertions.
// Returns: none.
func TestWildcardPattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{pattern: "*", value: "anything", want: true},
		{pattern: "**", value: "", want: true},
		{pattern: "rss", value: "rss", want: true},
		{pattern: "rss", value: "rssrss", want: false},
		{pattern: "cpu_*", value: "cpu_util", want: true},
		{pattern: "cpu_*", value: "ram_util", want: false},
		{pattern: "*_util", value: "ram_util", want: true},
		{pattern: "*_util", value: "util", want: false},
		{pattern: "num_*_total", value: "num_threads_total", want: true},
		{pattern: "a*a", value: "a", want: false},
		{pattern: "a*a", value: "aa", want: true},
		{pattern: "*thr*", value: "num_threads", want: true},
		{pattern: "h*b*d", value: "hbd", want: true},
		{pattern: "h*b*d", value: "hdb", want: false},
	}

	for _, tt := range tests {
		compiled, ok := CompileWildcard(tt.pattern)
		if !ok {
			t.Fatalf("CompileWildcard(%q) rejected pattern", tt.pattern)
		}
		if got := compiled.Match(tt.value); got != tt.want {
			t.Fatalf("pattern %q value %q: got %v want %v", tt.pattern, tt.value, got, tt.want)
		}
	}
}

// TestCompileAll_SkipsBlank verifies blank patterns are ignored.
// Params: testing.T for assertions.
// Returns: none.
func TestCompileAll_SkipsBlank(t *testing.T) {
	patterns := CompileAll([]string{"", "  ", "cpu_*"})
	if len(patterns) != 1 {
		t.Fatalf("expected one compiled pattern, got %d", len(patterns))
	}
	if !AnyMatch(patterns, "cpu_util") || AnyMatch(patterns, "rss") {
		t.Fatalf("unexpected AnyMatch results")
	}
}
