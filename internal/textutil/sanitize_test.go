package textutil_test

import (
	"testing"

	"hookreel/internal/textutil"
)

func TestFileSegment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"artificial intelligence", "artificial_intelligence"},
		{"  indie   hackers ", "indie_hackers"},
		{"AI/ML: news?", "AI-ML-_news"},
		{"", "unknown"},
		{" ?? ", "unknown"},
	}
	for _, tc := range cases {
		if got := textutil.FileSegment(tc.in, "unknown"); got != tc.want {
			t.Errorf("FileSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := textutil.Truncate("hello world", 8); got != "hello..." {
		t.Fatalf("Truncate = %q", got)
	}
	if got := textutil.Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := textutil.Truncate("héllo wörld", 5); got != "hé..." {
		t.Fatalf("Truncate = %q", got)
	}
}
