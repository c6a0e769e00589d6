package highlight_test

import (
	"strings"
	"testing"

	"github.com/halvorsen/memcached-relay/highlight"
)

func TestCommandEmptyOp(t *testing.T) {
	t.Parallel()
	if got := highlight.Command("", "foo"); got != "foo" {
		t.Fatalf("Command(\"\", foo) = %q, want foo", got)
	}
}

func TestCommandEmptyKey(t *testing.T) {
	t.Parallel()
	got := highlight.Command("GET", "")
	if !strings.Contains(got, "GET") {
		t.Fatalf("Command(GET, \"\") = %q, want it to contain GET", got)
	}
}

func TestCommandBothPresent(t *testing.T) {
	t.Parallel()
	got := highlight.Command("GET", "foo")
	if !strings.Contains(got, "GET") || !strings.Contains(got, "foo") {
		t.Fatalf("Command(GET, foo) = %q, want it to contain both", got)
	}
}

func TestRawEmpty(t *testing.T) {
	t.Parallel()
	if got := highlight.Raw(""); got != "" {
		t.Fatalf("Raw(\"\") = %q, want empty", got)
	}
}

func TestStatsHighlightsNameValue(t *testing.T) {
	t.Parallel()
	got := highlight.Stats("STAT pid 1234\nSTAT uptime 500\n")
	if !strings.Contains(got, "pid") || !strings.Contains(got, "1234") {
		t.Fatalf("Stats output missing name/value: %q", got)
	}
}

func TestStatsEmpty(t *testing.T) {
	t.Parallel()
	if got := highlight.Stats(""); got != "" {
		t.Fatalf("Stats(\"\") = %q, want empty", got)
	}
}
