package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	t.Setenv("SPENDWELL_TEST_DIR", "/tmp/spendwell")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain path untouched", input: "/var/lib/db.sqlite", want: "/var/lib/db.sqlite"},
		{name: "tilde prefix", input: "~/data/db.sqlite", want: filepath.Join(home, "data/db.sqlite")},
		{name: "bare tilde", input: "~", want: home},
		{name: "env var", input: "$SPENDWELL_TEST_DIR/db.sqlite", want: "/tmp/spendwell/db.sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
