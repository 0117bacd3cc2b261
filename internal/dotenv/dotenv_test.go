package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingFileIsNoop(t *testing.T) {
	t.Parallel()
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file error: %v", err)
	}
}

func TestLoadFile_LoadsValuesAndPreservesExisting(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"# comment\n" +
		"VOICECORE_ADDR=:9090\n" +
		"QUOTED=\"hello world\"\n" +
		"export EXPORTED=ok\n" +
		"EXISTING=from_file\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("EXISTING", "already_set")

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if got := os.Getenv("VOICECORE_ADDR"); got != ":9090" {
		t.Fatalf("VOICECORE_ADDR=%q, want %q", got, ":9090")
	}
	if got := os.Getenv("QUOTED"); got != "hello world" {
		t.Fatalf("QUOTED=%q, want %q", got, "hello world")
	}
	if got := os.Getenv("EXPORTED"); got != "ok" {
		t.Fatalf("EXPORTED=%q, want %q", got, "ok")
	}
	if got := os.Getenv("EXISTING"); got != "already_set" {
		t.Fatalf("EXISTING=%q, want existing value preserved", got)
	}
}

func TestParseLine(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		line string
		key  string
		val  string
		ok   bool
	}{
		{"plain", "A=1", "A", "1", true},
		{"spaces", "  A = 1 ", "A", "1", true},
		{"export prefix", "export A=1", "A", "1", true},
		{"double quoted", `A="b c"`, "A", "b c", true},
		{"single quoted", "A='b c'", "A", "b c", true},
		{"empty value", "A=", "A", "", true},
		{"comment", "# A=1", "", "", false},
		{"blank", "   ", "", "", false},
		{"no equals", "just words", "", "", false},
		{"empty key", "=1", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, val, ok := parseLine(tc.line)
			if key != tc.key || val != tc.val || ok != tc.ok {
				t.Fatalf("parseLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tc.line, key, val, ok, tc.key, tc.val, tc.ok)
			}
		})
	}
}
