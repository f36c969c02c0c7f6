package llmutils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("got %q", got)
	}
}

func TestCleanCompletion(t *testing.T) {
	tests := map[string]string{
		"  Hello \n":                      "Hello",
		"<think>hmm</think> Hi":           "Hi",
		"\n\t ":                           "",
		"<think>only\nthinking</think>\n": "",
	}
	for in, want := range tests {
		if got := CleanCompletion(in); got != want {
			t.Errorf("CleanCompletion(%q) = %q, want %q", in, got, want)
		}
	}
}
