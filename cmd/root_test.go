package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "lcxterm ") {
		t.Errorf("version output = %q", out)
	}
}

// TestExecute_Help verifies --help (and no args) prints usage without error.
func TestExecute_Help(t *testing.T) {
	t.Setenv("LCXTERM_SERVER", "")
	for _, args := range [][]string{{"--help"}, {}} {
		name := "no-args"
		if len(args) > 0 {
			name = args[0]
		}
		t.Run(name, func(t *testing.T) {
			_, errOut, err := execute(t, args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(errOut, "Usage:") {
				t.Errorf("usage not printed: %q", errOut)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run resolves the launch URL and exits.
func TestExecute_DryRun(t *testing.T) {
	out, _, err := execute(t, "--dry-run",
		"http://dash:8080/term.html?id=5&localip=10.0.0.1&localport=2222&termtype=ssh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"transport: ws://dash:8080/ws?op=termconnect&id=5",
		"dashboard: http://dash:8080",
		"LocalAddr: 10.0.0.1:2222",
		"escape:    ^]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestExecute_DryRunFlags verifies flags alone can describe the target.
func TestExecute_DryRunFlags(t *testing.T) {
	out, _, err := execute(t, "--dry-run", "--server", "dash", "--id", "3",
		"--secure", "--escape", "none", "-T", "admin@bastion")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"transport: wss://dash:443/ws?op=termconnect&id=3",
		"gateway:   ssh admin@bastion:22",
		"escape:    none",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches a missing id.
func TestExecute_DryRunInvalid(t *testing.T) {
	_, _, err := execute(t, "--dry-run", "http://dash:8080/term.html")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "id") {
		t.Errorf("error should mention id: %v", err)
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	if _, _, err := execute(t, "--nonexistent-flag"); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_TooManyArgs verifies only one launch URL is accepted.
func TestExecute_TooManyArgs(t *testing.T) {
	_, _, err := execute(t, "--dry-run", "http://a/?id=1", "http://b/?id=2")
	if err == nil {
		t.Fatal("expected error for two launch URLs")
	}
	if !strings.Contains(err.Error(), "too many arguments") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestExecute_BadTunnel verifies a malformed -T spec is rejected.
func TestExecute_BadTunnel(t *testing.T) {
	_, _, err := execute(t, "--dry-run", "-T", "user@host:999999", "http://dash/?id=1")
	if err == nil {
		t.Fatal("expected tunnel error")
	}
	if !strings.HasPrefix(err.Error(), "tunnel:") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestExecute_BadEscape verifies Validate runs before any mode is built.
func TestExecute_BadEscape(t *testing.T) {
	if _, _, err := execute(t, "--dry-run", "--escape", "^^^", "http://dash/?id=1"); err == nil {
		t.Fatal("expected escape error")
	}
}
