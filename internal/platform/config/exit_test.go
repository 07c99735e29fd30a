package config

import (
	"bytes"
	"testing"
)

func TestExitf(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{code: 1, want: 1},
		{code: 5, want: 5},
		{code: 0, want: 1},
		{code: -2, want: 1},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		got := -1
		exitf(&buf, func(c int) { got = c }, tt.code, "Error: %v", "boom")
		if got != tt.want {
			t.Fatalf("exit code for %d = %d, want %d", tt.code, got, tt.want)
		}
		if buf.String() != "Error: boom\n" {
			t.Fatalf("output = %q", buf.String())
		}
	}
}
