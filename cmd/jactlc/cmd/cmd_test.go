package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestReadInputPrefersEvalFlag(t *testing.T) {
	input, filename, err := readInput("1 + 1", []string{"ignored.jactl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "1 + 1" || filename != "<eval>" {
		t.Fatalf("expected the eval flag to take precedence, got (%q, %q)", input, filename)
	}
}

func TestReadInputReadsFileArg(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.jactl")
	if err := os.WriteFile(path, []byte("var x = 1\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	input, filename, err := readInput("", []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "var x = 1\n" || filename != path {
		t.Fatalf("unexpected readInput result: (%q, %q)", input, filename)
	}
}

func TestReadInputMissingFile(t *testing.T) {
	if _, _, err := readInput("", []string{"/no/such/file.jactl"}); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

// captureStdout redirects os.Stdout for the duration of fn and returns what
// was written, since lex/parse/resolve all print directly to os.Stdout
// rather than through cobra's OutOrStdout().
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}
	return buf.String()
}

func TestLexCommandEval(t *testing.T) {
	out := captureStdout(t, func() {
		rootCmd.SetArgs([]string{"lex", "-e", "1 + 2"})
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("lex command failed: %v", err)
		}
	})
	if out == "" {
		t.Fatalf("expected lex to print the token stream")
	}
}

func TestParseCommandEval(t *testing.T) {
	out := captureStdout(t, func() {
		rootCmd.SetArgs([]string{"parse", "-e", "1 + 2"})
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("parse command failed: %v", err)
		}
	})
	if out == "" {
		t.Fatalf("expected parse to print the AST")
	}
}

func TestResolveCommandEval(t *testing.T) {
	out := captureStdout(t, func() {
		rootCmd.SetArgs([]string{"resolve", "-e", "var x = 1"})
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("resolve command failed: %v", err)
		}
	})
	if out == "" {
		t.Fatalf("expected resolve to print its OK summary")
	}
}

func TestResolveCommandReportsErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"resolve", "-e", "var x = 1\nvar x = 2"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected resolve to fail on a duplicate declaration")
	}
}
