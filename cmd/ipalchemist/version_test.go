package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestVersionCmd tests the version command output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"ipalchemist version", "commit:", "built:"} {
		if !strings.Contains(text, want) {
			t.Errorf("version output missing %q:\n%s", want, text)
		}
	}
}

// TestGetVersion tests the ldflags override.
func TestGetVersion(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	version = "v1.2.3"
	if got := getVersion(); got != "v1.2.3" {
		t.Errorf("getVersion() = %q, expected ldflags value", got)
	}
}
